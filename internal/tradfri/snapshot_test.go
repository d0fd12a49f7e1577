package tradfri

import "testing"

func TestSnapshotFromDevice(t *testing.T) {
	tests := []struct {
		name     string
		device   Device
		expected Snapshot
	}{
		{
			name: "white_spectrum_bulb",
			device: Device{
				ID:        "65537",
				Name:      "Desk lamp",
				Reachable: true,
				Light: &LightControl{
					Power:      true,
					Brightness: 200,
					ColorTemp:  370,
					MinMireds:  250,
					MaxMireds:  454,
					CanSetTemp: true,
				},
			},
			expected: Snapshot{
				Name:       "Desk lamp",
				Reachable:  true,
				Powered:    true,
				Brightness: 200,
				ColorTemp:  370,
				MinMireds:  250,
				MaxMireds:  454,
			},
		},
		{
			name: "color_bulb",
			device: Device{
				ID:        "65538",
				Name:      "Shelf",
				Reachable: true,
				Light: &LightControl{
					Power:       true,
					Brightness:  100,
					HasXY:       true,
					X:           0.5,
					Y:           0.4,
					CanSetColor: true,
				},
			},
			expected: Snapshot{
				Name:       "Shelf",
				Reachable:  true,
				Powered:    true,
				Brightness: 100,
				XY:         &XY{X: 0.5, Y: 0.4},
			},
		},
		{
			name: "non_light_device",
			device: Device{
				ID:        "65539",
				Name:      "Remote control",
				Reachable: false,
			},
			expected: Snapshot{
				Name:      "Remote control",
				Reachable: false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snapshotFromDevice(tt.device)
			if got.Name != tt.expected.Name ||
				got.Reachable != tt.expected.Reachable ||
				got.Powered != tt.expected.Powered ||
				got.Brightness != tt.expected.Brightness ||
				got.ColorTemp != tt.expected.ColorTemp ||
				got.MinMireds != tt.expected.MinMireds ||
				got.MaxMireds != tt.expected.MaxMireds {
				t.Errorf("snapshotFromDevice() = %+v, want %+v", got, tt.expected)
			}
			if (got.XY == nil) != (tt.expected.XY == nil) {
				t.Fatalf("snapshotFromDevice().XY = %v, want %v", got.XY, tt.expected.XY)
			}
			if got.XY != nil && *got.XY != *tt.expected.XY {
				t.Errorf("snapshotFromDevice().XY = %+v, want %+v", *got.XY, *tt.expected.XY)
			}
		})
	}
}

func TestCapabilitiesFromDevice(t *testing.T) {
	tests := []struct {
		name     string
		device   Device
		expected Capabilities
	}{
		{
			name:     "non_light_device",
			device:   Device{ID: "1", Name: "Remote"},
			expected: Capabilities{},
		},
		{
			name: "dimmer_only",
			device: Device{
				ID:    "2",
				Light: &LightControl{Power: true, Brightness: 100},
			},
			expected: Capabilities{Brightness: true, Transition: true},
		},
		{
			name: "white_spectrum",
			device: Device{
				ID:    "3",
				Light: &LightControl{CanSetTemp: true},
			},
			expected: Capabilities{Brightness: true, Transition: true, ColorTemp: true},
		},
		{
			name: "full_color",
			device: Device{
				ID:    "4",
				Light: &LightControl{CanSetTemp: true, CanSetColor: true},
			},
			expected: Capabilities{
				Brightness: true,
				Transition: true,
				ColorTemp:  true,
				XYColor:    true,
				RGBColor:   true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := capabilitiesFromDevice(tt.device)
			if got != tt.expected {
				t.Errorf("capabilitiesFromDevice() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestGroupCapabilitiesFixed(t *testing.T) {
	got := groupCapabilities()
	want := Capabilities{Brightness: true, Transition: true}
	if got != want {
		t.Errorf("groupCapabilities() = %+v, want %+v", got, want)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	l := NewLight(testDevice(), &fakeExecutor{}, nil)
	if !reg.AddLight(l) {
		t.Fatal("AddLight() = false on first registration")
	}
	if reg.AddLight(l) {
		t.Error("AddLight() = true on duplicate registration")
	}
	if got, ok := reg.Light("65537"); !ok || got != l {
		t.Errorf("Light(65537) = %v, %v; want the registered adapter", got, ok)
	}
	if _, ok := reg.Light("99999"); ok {
		t.Error("Light(99999) = ok for unknown ID")
	}
	if n := len(reg.Lights()); n != 1 {
		t.Errorf("len(Lights()) = %d, want 1", n)
	}

	g := NewLightGroup(testGroup(), &fakeExecutor{}, nil)
	if !reg.AddGroup(g) {
		t.Fatal("AddGroup() = false on first registration")
	}
	if reg.AddGroup(g) {
		t.Error("AddGroup() = true on duplicate registration")
	}
	if got, ok := reg.Group("131073"); !ok || got != g {
		t.Errorf("Group(131073) = %v, %v; want the registered adapter", got, ok)
	}
	if n := len(reg.Groups()); n != 1 {
		t.Errorf("len(Groups()) = %d, want 1", n)
	}
}
