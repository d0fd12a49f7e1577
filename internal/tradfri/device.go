// Package tradfri adapts Tradfri gateway resources (lights and light groups)
// to the bridge's generic light model. Adapters hold an immutable snapshot of
// the last observed device state and translate turn-on/turn-off requests into
// gateway commands.
package tradfri

import "context"

// Device is one gateway-attached device as last fetched from the gateway.
type Device struct {
	ID        string
	Name      string
	Reachable bool
	Info      DeviceInfo
	Light     *LightControl // nil for non-light devices
}

// HasLightControl reports whether the device exposes a light control block.
// Only such devices are bridged as lights.
func (d Device) HasLightControl() bool {
	return d.Light != nil
}

// DeviceInfo is the static metadata block every device reports.
type DeviceInfo struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	Firmware     string `json:"firmware,omitempty"`
}

// LightControl is the light control block of a device: current state plus the
// control capabilities declared by the data the gateway returns for it.
type LightControl struct {
	Power      bool
	Brightness uint8  // 0..254
	ColorTemp  uint16 // mireds, meaningful when CanSetTemp
	MinMireds  uint16
	MaxMireds  uint16
	HasXY      bool
	X, Y       float64 // CIE xy, valid when HasXY

	CanSetTemp  bool
	CanSetColor bool
}

// Group is one gateway-defined group of devices.
type Group struct {
	ID         string
	Name       string
	Power      bool
	Brightness uint8
	DeviceIDs  []string
}

// Lister fetches gateway resources.
type Lister interface {
	Devices(ctx context.Context) ([]Device, error)
	Device(ctx context.Context, id string) (Device, error)
	Groups(ctx context.Context) ([]Group, error)
	Group(ctx context.Context, id string) (Group, error)
}

// Gateway is the full surface the concrete gateway client implements.
// Adapters only ever receive the narrow pieces they need.
type Gateway interface {
	Lister
	Executor
	DeviceObserver
	GroupObserver
}
