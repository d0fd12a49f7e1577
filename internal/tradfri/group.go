package tradfri

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tradfrid/internal/eventbus"
)

// LightGroup adapts one gateway-defined group of lights. Groups expose a
// reduced surface: power, brightness and transition, no per-light color.
type LightGroup struct {
	id   string
	exec Executor
	obs  GroupObserver
	cfg  ObserveConfig

	mu   sync.RWMutex
	snap GroupSnapshot
}

// NewLightGroup creates a group adapter with default observation settings.
func NewLightGroup(g Group, exec Executor, obs GroupObserver) *LightGroup {
	return NewLightGroupWithConfig(g, exec, obs, DefaultObserveConfig())
}

// NewLightGroupWithConfig creates a group adapter with custom observation
// settings. The initial snapshot comes from the given group.
func NewLightGroupWithConfig(g Group, exec Executor, obs GroupObserver, cfg ObserveConfig) *LightGroup {
	lg := &LightGroup{
		id:   g.ID,
		exec: exec,
		obs:  obs,
		cfg:  cfg,
	}
	lg.Refresh(g)
	return lg
}

// ID returns the gateway instance ID of the group.
func (g *LightGroup) ID() string {
	return g.id
}

// Name returns the group display name.
func (g *LightGroup) Name() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snap.Name
}

// IsOn reports whether the group was on as of the last refresh.
func (g *LightGroup) IsOn() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snap.Powered
}

// Brightness returns the group dimmer level, 0..254.
func (g *LightGroup) Brightness() uint8 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snap.Brightness
}

// Caps returns the fixed group capability set.
func (g *LightGroup) Caps() Capabilities {
	return groupCapabilities()
}

// Snapshot returns the current state snapshot.
func (g *LightGroup) Snapshot() GroupSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snap
}

// Record returns the full persisted representation of the group.
func (g *LightGroup) Record() GroupRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return GroupRecord{Snapshot: g.snap, Caps: groupCapabilities()}
}

// Refresh replaces the snapshot wholesale from a freshly fetched group.
func (g *LightGroup) Refresh(group Group) {
	snap := snapshotFromGroup(group)

	g.mu.Lock()
	g.snap = snap
	g.mu.Unlock()
}

// TurnOff issues a single group power-off command.
func (g *LightGroup) TurnOff(ctx context.Context) error {
	return execute(ctx, g.exec, []Command{{
		Target: g.target(),
		Op:     OpSetPower,
		Power:  false,
	}})
}

// TurnOn sends a group brightness command when brightness is requested (with
// the same 255 clamp and transition conversion as lights), otherwise a bare
// group power-on. Color attributes are not part of the group surface and are
// ignored.
func (g *LightGroup) TurnOn(ctx context.Context, opts Options) error {
	return execute(ctx, g.exec, buildGroupCommands(g.target(), opts))
}

// Run keeps the push subscription for this group alive until the context
// ends, mirroring Light.Run.
func (g *LightGroup) Run(ctx context.Context, bus *eventbus.Bus) error {
	obs := &observation{
		target: g.target(),
		config: g.cfg,
		subscribe: func(ctx context.Context) error {
			return g.obs.ObserveGroup(ctx, g.id, func(group Group) {
				g.Refresh(group)
				observeEvents.WithLabelValues(TargetGroup.String()).Inc()
				log.Debug().Str("id", g.id).Str("name", group.Name).Msg("Group notification")
				bus.Publish(eventbus.NewEvent(eventbus.EventTypeGroupUpdated, map[string]interface{}{
					"id":   g.id,
					"name": group.Name,
				}))
			})
		},
	}
	return obs.run(ctx)
}

func (g *LightGroup) target() Target {
	return Target{Kind: TargetGroup, ID: g.id}
}

func buildGroupCommands(t Target, opts Options) []Command {
	transition := transitionTenths(opts.Transition)

	if opts.Brightness != nil {
		return []Command{{
			Target:     t,
			Op:         OpSetBrightness,
			Brightness: clampBrightness(*opts.Brightness),
			Transition: transition,
		}}
	}
	return []Command{{Target: t, Op: OpSetPower, Power: true}}
}
