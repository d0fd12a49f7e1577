package tradfri

// Snapshot is the cached state of one light as of the last refresh. A
// snapshot is always replaced wholesale from a freshly fetched device, never
// patched field by field, so its fields are mutually consistent.
type Snapshot struct {
	Name       string `json:"name"`
	Reachable  bool   `json:"reachable"`
	Powered    bool   `json:"powered"`
	Brightness uint8  `json:"brightness"`
	ColorTemp  uint16 `json:"color_temp,omitempty"`
	MinMireds  uint16 `json:"min_mireds,omitempty"`
	MaxMireds  uint16 `json:"max_mireds,omitempty"`
	XY         *XY    `json:"xy,omitempty"`
}

// GroupSnapshot is the cached state of one light group.
type GroupSnapshot struct {
	Name       string `json:"name"`
	Powered    bool   `json:"powered"`
	Brightness uint8  `json:"brightness"`
}

// Capabilities describes what a resource accepts, derived from the control
// metadata the gateway declares for it.
type Capabilities struct {
	Brightness bool `json:"brightness"`
	Transition bool `json:"transition"`
	ColorTemp  bool `json:"color_temp"`
	XYColor    bool `json:"xy_color"`
	RGBColor   bool `json:"rgb_color"`
}

// LightRecord bundles everything the bridge needs to represent a light:
// state, capabilities and device metadata. Persisted between runs so entities
// can be republished before the gateway answers.
type LightRecord struct {
	Snapshot Snapshot     `json:"snapshot"`
	Caps     Capabilities `json:"caps"`
	Info     DeviceInfo   `json:"info"`
}

// GroupRecord is the persisted analog for a group.
type GroupRecord struct {
	Snapshot GroupSnapshot `json:"snapshot"`
	Caps     Capabilities  `json:"caps"`
}

func snapshotFromDevice(d Device) Snapshot {
	snap := Snapshot{
		Name:      d.Name,
		Reachable: d.Reachable,
	}
	lc := d.Light
	if lc == nil {
		return snap
	}
	snap.Powered = lc.Power
	snap.Brightness = lc.Brightness
	snap.ColorTemp = lc.ColorTemp
	snap.MinMireds = lc.MinMireds
	snap.MaxMireds = lc.MaxMireds
	if lc.HasXY {
		snap.XY = &XY{X: lc.X, Y: lc.Y}
	}
	return snap
}

func capabilitiesFromDevice(d Device) Capabilities {
	if d.Light == nil {
		return Capabilities{}
	}
	return Capabilities{
		Brightness: true,
		Transition: true,
		ColorTemp:  d.Light.CanSetTemp,
		XYColor:    d.Light.CanSetColor,
		RGBColor:   d.Light.CanSetColor,
	}
}

func snapshotFromGroup(g Group) GroupSnapshot {
	return GroupSnapshot{
		Name:       g.Name,
		Powered:    g.Power,
		Brightness: g.Brightness,
	}
}

// groupCapabilities is fixed: groups expose power, brightness and transition,
// never per-light color control.
func groupCapabilities() Capabilities {
	return Capabilities{
		Brightness: true,
		Transition: true,
	}
}
