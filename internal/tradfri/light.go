package tradfri

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tradfrid/internal/eventbus"
)

// Light adapts one gateway light device. It owns a snapshot of the device's
// last observed state and translates generic light requests into gateway
// commands. The executor and observer are injected at construction.
type Light struct {
	id   string
	exec Executor
	obs  DeviceObserver
	cfg  ObserveConfig

	mu   sync.RWMutex
	snap Snapshot
	caps Capabilities
	info DeviceInfo
}

// NewLight creates a light adapter with default observation settings.
func NewLight(dev Device, exec Executor, obs DeviceObserver) *Light {
	return NewLightWithConfig(dev, exec, obs, DefaultObserveConfig())
}

// NewLightWithConfig creates a light adapter with custom observation settings.
// The initial snapshot and capability set come from the given device.
func NewLightWithConfig(dev Device, exec Executor, obs DeviceObserver, cfg ObserveConfig) *Light {
	l := &Light{
		id:   dev.ID,
		exec: exec,
		obs:  obs,
		cfg:  cfg,
	}
	l.Refresh(dev)
	return l
}

// ID returns the gateway instance ID of the device.
func (l *Light) ID() string {
	return l.id
}

// Name returns the device display name.
func (l *Light) Name() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap.Name
}

// IsOn reports whether the light was on as of the last refresh.
func (l *Light) IsOn() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap.Powered
}

// Brightness returns the dimmer level, 0..254.
func (l *Light) Brightness() uint8 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap.Brightness
}

// ColorTemp returns the color temperature in mireds.
func (l *Light) ColorTemp() uint16 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap.ColorTemp
}

// MinMireds returns the lower color temperature bound.
func (l *Light) MinMireds() uint16 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap.MinMireds
}

// MaxMireds returns the upper color temperature bound.
func (l *Light) MaxMireds() uint16 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap.MaxMireds
}

// XY returns the current chromaticity, if the device reports one.
func (l *Light) XY() (XY, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.snap.XY == nil {
		return XY{}, false
	}
	return *l.snap.XY, true
}

// Available reports whether the gateway can reach the device.
func (l *Light) Available() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap.Reachable
}

// Caps returns the capability set derived from the device metadata.
func (l *Light) Caps() Capabilities {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.caps
}

// Info returns the device metadata block.
func (l *Light) Info() DeviceInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.info
}

// Snapshot returns the current state snapshot.
func (l *Light) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Record returns the full persisted representation of the light.
func (l *Light) Record() LightRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return LightRecord{Snapshot: l.snap, Caps: l.caps, Info: l.info}
}

// Refresh replaces the snapshot, capability set and metadata wholesale from a
// freshly fetched device. Fields are never merged into the old snapshot.
func (l *Light) Refresh(dev Device) {
	snap := snapshotFromDevice(dev)
	caps := capabilitiesFromDevice(dev)

	l.mu.Lock()
	l.snap = snap
	l.caps = caps
	l.info = dev.Info
	l.mu.Unlock()
}

// TurnOff issues a single power-off command.
func (l *Light) TurnOff(ctx context.Context) error {
	return execute(ctx, l.exec, []Command{{
		Target: l.target(),
		Op:     OpSetPower,
		Power:  false,
	}})
}

// TurnOn translates one turn-on request into gateway commands and submits
// them sequentially. See buildLightCommands for the translation policy.
func (l *Light) TurnOn(ctx context.Context, opts Options) error {
	return execute(ctx, l.exec, buildLightCommands(l.target(), opts))
}

// Run keeps the push subscription for this device alive until the context
// ends. Every notification replaces the snapshot and publishes an update
// event for the bridge to act on. Returns ErrMaxReconnectsExceeded when the
// configured re-subscription limit is reached.
func (l *Light) Run(ctx context.Context, bus *eventbus.Bus) error {
	obs := &observation{
		target: l.target(),
		config: l.cfg,
		subscribe: func(ctx context.Context) error {
			return l.obs.ObserveDevice(ctx, l.id, func(dev Device) {
				l.Refresh(dev)
				observeEvents.WithLabelValues(TargetDevice.String()).Inc()
				log.Debug().Str("id", l.id).Str("name", dev.Name).Msg("Device notification")
				bus.Publish(eventbus.NewEvent(eventbus.EventTypeDeviceUpdated, map[string]interface{}{
					"id":   l.id,
					"name": dev.Name,
				}))
			})
		},
	}
	return obs.run(ctx)
}

func (l *Light) target() Target {
	return Target{Kind: TargetDevice, ID: l.id}
}

// buildLightCommands expands one turn-on request into 1..4 commands, in
// order: color (xy first, then rgb converted to xy), color temperature,
// brightness. A request with none of those becomes a bare power-on. The
// transition rides on every command except color/temperature commands when
// brightness is part of the same request; bare power commands never carry
// one. Brightness 255 clamps to the gateway maximum of 254.
func buildLightCommands(t Target, opts Options) []Command {
	transition := transitionTenths(opts.Transition)

	// Color and temperature commands drop the transition when a brightness
	// command follows in the same request.
	colorTransition := transition
	if opts.Brightness != nil {
		colorTransition = nil
	}

	var cmds []Command
	if opts.XY != nil {
		cmds = append(cmds, Command{
			Target:     t,
			Op:         OpSetColor,
			X:          opts.XY.X,
			Y:          opts.XY.Y,
			Transition: colorTransition,
		})
	}
	if opts.RGB != nil {
		xy := RGBToXY(*opts.RGB)
		cmds = append(cmds, Command{
			Target:     t,
			Op:         OpSetColor,
			X:          xy.X,
			Y:          xy.Y,
			Transition: colorTransition,
		})
	}
	if opts.ColorTemp != nil {
		cmds = append(cmds, Command{
			Target:     t,
			Op:         OpSetColorTemp,
			ColorTemp:  *opts.ColorTemp,
			Transition: colorTransition,
		})
	}
	if opts.Brightness != nil {
		cmds = append(cmds, Command{
			Target:     t,
			Op:         OpSetBrightness,
			Brightness: clampBrightness(*opts.Brightness),
			Transition: transition,
		})
	}
	if len(cmds) == 0 {
		cmds = append(cmds, Command{Target: t, Op: OpSetPower, Power: true})
	}
	return cmds
}
