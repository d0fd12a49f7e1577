package bridge

import (
	"github.com/dokzlo13/tradfrid/internal/tradfri"
)

// discoveryPayload is a Home Assistant MQTT discovery config for a JSON
// schema light entity.
type discoveryPayload struct {
	Schema              string            `json:"schema"`
	Name                string            `json:"name"`
	UniqueID            string            `json:"unique_id"`
	StateTopic          string            `json:"state_topic"`
	CommandTopic        string            `json:"command_topic"`
	Availability        []availabilityRef `json:"availability"`
	AvailabilityMode    string            `json:"availability_mode"`
	Brightness          bool              `json:"brightness"`
	BrightnessScale     int               `json:"brightness_scale,omitempty"`
	SupportedColorModes []string          `json:"supported_color_modes,omitempty"`
	MinMireds           uint16            `json:"min_mireds,omitempty"`
	MaxMireds           uint16            `json:"max_mireds,omitempty"`
	Device              *deviceRef        `json:"device,omitempty"`
}

type availabilityRef struct {
	Topic string `json:"topic"`
}

// deviceRef groups entities under one device in the Home Assistant registry.
type deviceRef struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// lightDiscovery builds the config for one light. The entity goes
// unavailable when either the bridge or the bulb drops off.
func lightDiscovery(t topics, id string, rec tradfri.LightRecord) discoveryPayload {
	p := discoveryPayload{
		Schema:       "json",
		Name:         rec.Snapshot.Name,
		UniqueID:     uniqueID(kindLight, id),
		StateTopic:   t.state(kindLight, id),
		CommandTopic: t.set(kindLight, id),
		Availability: []availabilityRef{
			{Topic: t.bridgeState()},
			{Topic: t.availability(kindLight, id)},
		},
		AvailabilityMode:    "all",
		Brightness:          rec.Caps.Brightness,
		BrightnessScale:     tradfri.DimmerMax,
		SupportedColorModes: supportedColorModes(rec.Caps),
		Device: &deviceRef{
			Identifiers:  []string{uniqueID(kindLight, id)},
			Name:         rec.Snapshot.Name,
			Manufacturer: rec.Info.Manufacturer,
			Model:        rec.Info.Model,
			SWVersion:    rec.Info.Firmware,
		},
	}
	if rec.Caps.ColorTemp {
		p.MinMireds = rec.Snapshot.MinMireds
		p.MaxMireds = rec.Snapshot.MaxMireds
	}
	return p
}

// groupDiscovery builds the config for one group. Groups carry no per-entity
// availability, only the bridge's.
func groupDiscovery(t topics, id string, rec tradfri.GroupRecord) discoveryPayload {
	return discoveryPayload{
		Schema:       "json",
		Name:         rec.Snapshot.Name,
		UniqueID:     uniqueID(kindGroup, id),
		StateTopic:   t.state(kindGroup, id),
		CommandTopic: t.set(kindGroup, id),
		Availability: []availabilityRef{
			{Topic: t.bridgeState()},
		},
		AvailabilityMode:    "all",
		Brightness:          rec.Caps.Brightness,
		BrightnessScale:     tradfri.DimmerMax,
		SupportedColorModes: supportedColorModes(rec.Caps),
	}
}

// supportedColorModes maps capabilities onto Home Assistant color modes.
// Exactly one mode family applies: color beats temperature beats plain
// brightness.
func supportedColorModes(caps tradfri.Capabilities) []string {
	var modes []string
	if caps.XYColor {
		modes = append(modes, colorModeXY)
	}
	if caps.ColorTemp {
		modes = append(modes, colorModeColorTemp)
	}
	if len(modes) == 0 && caps.Brightness {
		modes = append(modes, colorModeBrightness)
	}
	return modes
}
