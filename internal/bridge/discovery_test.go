package bridge

import (
	"testing"

	"github.com/dokzlo13/tradfrid/internal/tradfri"
)

func TestLightDiscovery(t *testing.T) {
	tp := topics{base: "tradfri", discoveryPrefix: "homeassistant"}
	rec := tradfri.LightRecord{
		Snapshot: tradfri.Snapshot{
			Name:      "Desk lamp",
			MinMireds: 250,
			MaxMireds: 454,
		},
		Caps: tradfri.Capabilities{
			Brightness: true,
			Transition: true,
			ColorTemp:  true,
		},
		Info: tradfri.DeviceInfo{
			Manufacturer: "IKEA of Sweden",
			Model:        "TRADFRI bulb E27 WS opal 980lm",
			Firmware:     "2.3.093",
		},
	}

	p := lightDiscovery(tp, "65537", rec)

	if p.Schema != "json" {
		t.Errorf("Schema = %q, want json", p.Schema)
	}
	if p.UniqueID != "tradfri_65537" {
		t.Errorf("UniqueID = %q, want tradfri_65537", p.UniqueID)
	}
	if p.StateTopic != "tradfri/light/65537" {
		t.Errorf("StateTopic = %q", p.StateTopic)
	}
	if p.CommandTopic != "tradfri/light/65537/set" {
		t.Errorf("CommandTopic = %q", p.CommandTopic)
	}
	if len(p.Availability) != 2 {
		t.Fatalf("len(Availability) = %d, want 2 (bridge and bulb)", len(p.Availability))
	}
	if p.Availability[0].Topic != "tradfri/bridge/state" {
		t.Errorf("Availability[0] = %q, want bridge state topic", p.Availability[0].Topic)
	}
	if p.Availability[1].Topic != "tradfri/light/65537/availability" {
		t.Errorf("Availability[1] = %q, want light availability topic", p.Availability[1].Topic)
	}
	if p.AvailabilityMode != "all" {
		t.Errorf("AvailabilityMode = %q, want all", p.AvailabilityMode)
	}
	if !p.Brightness || p.BrightnessScale != tradfri.DimmerMax {
		t.Errorf("Brightness = %v scale %d, want true scale %d", p.Brightness, p.BrightnessScale, tradfri.DimmerMax)
	}
	if p.MinMireds != 250 || p.MaxMireds != 454 {
		t.Errorf("mireds = %d..%d, want 250..454", p.MinMireds, p.MaxMireds)
	}
	if p.Device == nil {
		t.Fatal("Device block missing")
	}
	if p.Device.Manufacturer != "IKEA of Sweden" {
		t.Errorf("Device.Manufacturer = %q", p.Device.Manufacturer)
	}
	if p.Device.SWVersion != "2.3.093" {
		t.Errorf("Device.SWVersion = %q", p.Device.SWVersion)
	}
}

func TestLightDiscoveryNoTempNoMireds(t *testing.T) {
	tp := topics{base: "tradfri", discoveryPrefix: "homeassistant"}
	rec := tradfri.LightRecord{
		Snapshot: tradfri.Snapshot{Name: "Dimmer bulb", MinMireds: 250, MaxMireds: 454},
		Caps:     tradfri.Capabilities{Brightness: true, Transition: true},
	}

	p := lightDiscovery(tp, "65537", rec)
	if p.MinMireds != 0 || p.MaxMireds != 0 {
		t.Errorf("mireds = %d..%d, want omitted without color temp capability", p.MinMireds, p.MaxMireds)
	}
}

func TestGroupDiscovery(t *testing.T) {
	tp := topics{base: "tradfri", discoveryPrefix: "homeassistant"}
	rec := tradfri.GroupRecord{
		Snapshot: tradfri.GroupSnapshot{Name: "Kitchen"},
		Caps:     tradfri.Capabilities{Brightness: true, Transition: true},
	}

	p := groupDiscovery(tp, "131073", rec)

	if p.UniqueID != "tradfri_group_131073" {
		t.Errorf("UniqueID = %q, want tradfri_group_131073", p.UniqueID)
	}
	if p.StateTopic != "tradfri/group/131073" {
		t.Errorf("StateTopic = %q", p.StateTopic)
	}
	if p.CommandTopic != "tradfri/group/131073/set" {
		t.Errorf("CommandTopic = %q", p.CommandTopic)
	}
	// Groups have no per-entity availability topic, only the bridge's.
	if len(p.Availability) != 1 || p.Availability[0].Topic != "tradfri/bridge/state" {
		t.Errorf("Availability = %+v, want only the bridge state topic", p.Availability)
	}
	if p.Device != nil {
		t.Error("groups must not carry a device block")
	}
}

func TestSupportedColorModes(t *testing.T) {
	tests := []struct {
		name     string
		caps     tradfri.Capabilities
		expected []string
	}{
		{
			name:     "full_color",
			caps:     tradfri.Capabilities{Brightness: true, XYColor: true, ColorTemp: true},
			expected: []string{colorModeXY, colorModeColorTemp},
		},
		{
			name:     "white_spectrum",
			caps:     tradfri.Capabilities{Brightness: true, ColorTemp: true},
			expected: []string{colorModeColorTemp},
		},
		{
			name:     "dimmer_only",
			caps:     tradfri.Capabilities{Brightness: true},
			expected: []string{colorModeBrightness},
		},
		{
			name:     "no_capabilities",
			caps:     tradfri.Capabilities{},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := supportedColorModes(tt.caps)
			if len(got) != len(tt.expected) {
				t.Fatalf("supportedColorModes() = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("supportedColorModes()[%d] = %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}
