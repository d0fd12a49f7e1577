package tradfri

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// Helper to create a uint8 pointer
func uint8Ptr(v uint8) *uint8 {
	return &v
}

// Helper to create a uint16 pointer
func uint16Ptr(v uint16) *uint16 {
	return &v
}

// Helper to create a duration pointer
func durationPtr(d time.Duration) *time.Duration {
	return &d
}

// commandEqual compares commands including the transition pointer value.
func commandEqual(a, b Command) bool {
	if a.Target != b.Target || a.Op != b.Op {
		return false
	}
	if a.Power != b.Power || a.Brightness != b.Brightness || a.ColorTemp != b.ColorTemp {
		return false
	}
	if a.X != b.X || a.Y != b.Y {
		return false
	}
	if (a.Transition == nil) != (b.Transition == nil) {
		return false
	}
	if a.Transition != nil && *a.Transition != *b.Transition {
		return false
	}
	return true
}

// fakeExecutor records every submitted command and fails the ops listed in
// failOps.
type fakeExecutor struct {
	mu      sync.Mutex
	cmds    []Command
	failOps map[Op]error
}

func (f *fakeExecutor) Execute(_ context.Context, cmd Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	if err, ok := f.failOps[cmd.Op]; ok {
		return err
	}
	return nil
}

func (f *fakeExecutor) commands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.cmds))
	copy(out, f.cmds)
	return out
}

func TestBuildLightCommands(t *testing.T) {
	target := Target{Kind: TargetDevice, ID: "65537"}
	rgbRed := RGBToXY(RGB{R: 255, G: 0, B: 0})

	tests := []struct {
		name     string
		opts     Options
		expected []Command
	}{
		{
			name: "bare/no_attributes",
			opts: Options{},
			expected: []Command{
				{Target: target, Op: OpSetPower, Power: true},
			},
		},
		{
			name: "bare/transition_alone_does_not_ride_on_power",
			opts: Options{Transition: durationPtr(2 * time.Second)},
			expected: []Command{
				{Target: target, Op: OpSetPower, Power: true},
			},
		},
		{
			name: "brightness/plain",
			opts: Options{Brightness: uint8Ptr(200)},
			expected: []Command{
				{Target: target, Op: OpSetBrightness, Brightness: 200},
			},
		},
		{
			name: "brightness/255_clamps_to_dimmer_max",
			opts: Options{Brightness: uint8Ptr(255)},
			expected: []Command{
				{Target: target, Op: OpSetBrightness, Brightness: DimmerMax},
			},
		},
		{
			name: "brightness/with_transition",
			opts: Options{Brightness: uint8Ptr(254), Transition: durationPtr(1 * time.Second)},
			expected: []Command{
				{Target: target, Op: OpSetBrightness, Brightness: 254, Transition: uint16Ptr(10)},
			},
		},
		{
			name: "transition/fraction_truncates_to_whole_seconds",
			opts: Options{Brightness: uint8Ptr(1), Transition: durationPtr(1500 * time.Millisecond)},
			expected: []Command{
				{Target: target, Op: OpSetBrightness, Brightness: 1, Transition: uint16Ptr(10)},
			},
		},
		{
			name: "transition/below_one_second_becomes_zero",
			opts: Options{Brightness: uint8Ptr(1), Transition: durationPtr(500 * time.Millisecond)},
			expected: []Command{
				{Target: target, Op: OpSetBrightness, Brightness: 1, Transition: uint16Ptr(0)},
			},
		},
		{
			name: "color_temp/alone_keeps_transition",
			opts: Options{ColorTemp: uint16Ptr(370), Transition: durationPtr(2 * time.Second)},
			expected: []Command{
				{Target: target, Op: OpSetColorTemp, ColorTemp: 370, Transition: uint16Ptr(20)},
			},
		},
		{
			name: "color_temp/with_brightness_drops_transition",
			opts: Options{
				ColorTemp:  uint16Ptr(370),
				Brightness: uint8Ptr(100),
				Transition: durationPtr(2 * time.Second),
			},
			expected: []Command{
				{Target: target, Op: OpSetColorTemp, ColorTemp: 370},
				{Target: target, Op: OpSetBrightness, Brightness: 100, Transition: uint16Ptr(20)},
			},
		},
		{
			name: "xy/alone_keeps_transition",
			opts: Options{XY: &XY{X: 0.5, Y: 0.4}, Transition: durationPtr(1 * time.Second)},
			expected: []Command{
				{Target: target, Op: OpSetColor, X: 0.5, Y: 0.4, Transition: uint16Ptr(10)},
			},
		},
		{
			name: "xy/with_brightness_drops_transition",
			opts: Options{
				XY:         &XY{X: 0.5, Y: 0.4},
				Brightness: uint8Ptr(128),
				Transition: durationPtr(1 * time.Second),
			},
			expected: []Command{
				{Target: target, Op: OpSetColor, X: 0.5, Y: 0.4},
				{Target: target, Op: OpSetBrightness, Brightness: 128, Transition: uint16Ptr(10)},
			},
		},
		{
			name: "rgb/converted_to_xy",
			opts: Options{RGB: &RGB{R: 255, G: 0, B: 0}},
			expected: []Command{
				{Target: target, Op: OpSetColor, X: rgbRed.X, Y: rgbRed.Y},
			},
		},
		{
			name: "full/xy_then_rgb_then_temp_then_brightness",
			opts: Options{
				XY:         &XY{X: 0.3, Y: 0.3},
				RGB:        &RGB{R: 255, G: 0, B: 0},
				ColorTemp:  uint16Ptr(300),
				Brightness: uint8Ptr(255),
				Transition: durationPtr(3 * time.Second),
			},
			expected: []Command{
				{Target: target, Op: OpSetColor, X: 0.3, Y: 0.3},
				{Target: target, Op: OpSetColor, X: rgbRed.X, Y: rgbRed.Y},
				{Target: target, Op: OpSetColorTemp, ColorTemp: 300},
				{Target: target, Op: OpSetBrightness, Brightness: DimmerMax, Transition: uint16Ptr(30)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildLightCommands(target, tt.opts)
			if len(got) != len(tt.expected) {
				t.Fatalf("buildLightCommands() returned %d commands, want %d: %+v", len(got), len(tt.expected), got)
			}
			for i := range got {
				if !commandEqual(got[i], tt.expected[i]) {
					t.Errorf("command[%d] = %+v, want %+v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func testDevice() Device {
	return Device{
		ID:        "65537",
		Name:      "Living room",
		Reachable: true,
		Info: DeviceInfo{
			Manufacturer: "IKEA of Sweden",
			Model:        "TRADFRI bulb E27 WS opal 980lm",
			Firmware:     "2.3.093",
		},
		Light: &LightControl{
			Power:      true,
			Brightness: 200,
			ColorTemp:  370,
			MinMireds:  250,
			MaxMireds:  454,
			CanSetTemp: true,
		},
	}
}

func TestLightTurnOnSubmitsSequentially(t *testing.T) {
	exec := &fakeExecutor{}
	l := NewLight(testDevice(), exec, nil)

	opts := Options{
		ColorTemp:  uint16Ptr(300),
		Brightness: uint8Ptr(128),
		Transition: durationPtr(1 * time.Second),
	}
	if err := l.TurnOn(context.Background(), opts); err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}

	cmds := exec.commands()
	if len(cmds) != 2 {
		t.Fatalf("executed %d commands, want 2", len(cmds))
	}
	if cmds[0].Op != OpSetColorTemp || cmds[1].Op != OpSetBrightness {
		t.Errorf("command order = [%s, %s], want [set_color_temp, set_brightness]", cmds[0].Op, cmds[1].Op)
	}
}

func TestLightTurnOnContinuesAfterFailure(t *testing.T) {
	errTemp := errors.New("temp rejected")
	exec := &fakeExecutor{failOps: map[Op]error{OpSetColorTemp: errTemp}}
	l := NewLight(testDevice(), exec, nil)

	opts := Options{
		ColorTemp:  uint16Ptr(300),
		Brightness: uint8Ptr(128),
	}
	err := l.TurnOn(context.Background(), opts)
	if err == nil {
		t.Fatal("TurnOn() error = nil, want failure from color temp command")
	}
	if !errors.Is(err, errTemp) {
		t.Errorf("TurnOn() error = %v, want wrapped %v", err, errTemp)
	}

	// The failed command must not stop the ones after it.
	cmds := exec.commands()
	if len(cmds) != 2 {
		t.Fatalf("executed %d commands, want 2 (failure must not cancel the rest)", len(cmds))
	}
	if cmds[1].Op != OpSetBrightness {
		t.Errorf("command after failure = %s, want set_brightness", cmds[1].Op)
	}
}

func TestLightTurnOff(t *testing.T) {
	exec := &fakeExecutor{}
	l := NewLight(testDevice(), exec, nil)

	if err := l.TurnOff(context.Background()); err != nil {
		t.Fatalf("TurnOff() error = %v", err)
	}

	cmds := exec.commands()
	if len(cmds) != 1 {
		t.Fatalf("executed %d commands, want 1", len(cmds))
	}
	want := Command{Target: Target{Kind: TargetDevice, ID: "65537"}, Op: OpSetPower, Power: false}
	if !commandEqual(cmds[0], want) {
		t.Errorf("command = %+v, want %+v", cmds[0], want)
	}
}

func TestLightRefreshReplacesSnapshotWholesale(t *testing.T) {
	dev := testDevice()
	dev.Light.HasXY = true
	dev.Light.X = 0.5
	dev.Light.Y = 0.4
	dev.Light.CanSetColor = true

	l := NewLight(dev, &fakeExecutor{}, nil)
	if _, ok := l.XY(); !ok {
		t.Fatal("XY() reported no color before refresh")
	}

	// The fresh fetch no longer carries a color; the old value must not
	// survive the refresh.
	next := testDevice()
	next.Name = "Renamed"
	next.Reachable = false
	next.Light.Power = false
	l.Refresh(next)

	if _, ok := l.XY(); ok {
		t.Error("XY() still set after refresh without color")
	}
	if got := l.Name(); got != "Renamed" {
		t.Errorf("Name() = %q, want %q", got, "Renamed")
	}
	if l.Available() {
		t.Error("Available() = true after refresh with unreachable device")
	}
	if l.IsOn() {
		t.Error("IsOn() = true after refresh with powered-off device")
	}
	if l.Caps().XYColor {
		t.Error("Caps().XYColor = true after refresh without color control")
	}
}

func TestLightRecord(t *testing.T) {
	l := NewLight(testDevice(), &fakeExecutor{}, nil)

	rec := l.Record()
	if rec.Snapshot.Name != "Living room" {
		t.Errorf("Record().Snapshot.Name = %q, want %q", rec.Snapshot.Name, "Living room")
	}
	if !rec.Caps.ColorTemp {
		t.Error("Record().Caps.ColorTemp = false, want true")
	}
	if rec.Info.Manufacturer != "IKEA of Sweden" {
		t.Errorf("Record().Info.Manufacturer = %q, want %q", rec.Info.Manufacturer, "IKEA of Sweden")
	}
}
