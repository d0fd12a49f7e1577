package tradfri

import (
	"context"
	"testing"
	"time"
)

func testGroup() Group {
	return Group{
		ID:         "131073",
		Name:       "Kitchen",
		Power:      true,
		Brightness: 200,
		DeviceIDs:  []string{"65537", "65538"},
	}
}

func TestBuildGroupCommands(t *testing.T) {
	target := Target{Kind: TargetGroup, ID: "131073"}

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
			name: "brightness/with_transition",
			opts: Options{Brightness: uint8Ptr(128), Transition: durationPtr(1 * time.Second)},
			expected: []Command{
				{Target: target, Op: OpSetBrightness, Brightness: 128, Transition: uint16Ptr(10)},
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
			name: "color/ignored_without_brightness",
			opts: Options{
				XY:        &XY{X: 0.5, Y: 0.4},
				RGB:       &RGB{R: 255, G: 0, B: 0},
				ColorTemp: uint16Ptr(370),
			},
			expected: []Command{
				{Target: target, Op: OpSetPower, Power: true},
			},
		},
		{
			name: "color/ignored_next_to_brightness",
			opts: Options{
				XY:         &XY{X: 0.5, Y: 0.4},
				ColorTemp:  uint16Ptr(370),
				Brightness: uint8Ptr(64),
			},
			expected: []Command{
				{Target: target, Op: OpSetBrightness, Brightness: 64},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildGroupCommands(target, tt.opts)
			if len(got) != len(tt.expected) {
				t.Fatalf("buildGroupCommands() returned %d commands, want %d: %+v", len(got), len(tt.expected), got)
			}
			for i := range got {
				if !commandEqual(got[i], tt.expected[i]) {
					t.Errorf("command[%d] = %+v, want %+v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestGroupTurnOff(t *testing.T) {
	exec := &fakeExecutor{}
	g := NewLightGroup(testGroup(), exec, nil)

	if err := g.TurnOff(context.Background()); err != nil {
		t.Fatalf("TurnOff() error = %v", err)
	}

	cmds := exec.commands()
	if len(cmds) != 1 {
		t.Fatalf("executed %d commands, want 1", len(cmds))
	}
	want := Command{Target: Target{Kind: TargetGroup, ID: "131073"}, Op: OpSetPower, Power: false}
	if !commandEqual(cmds[0], want) {
		t.Errorf("command = %+v, want %+v", cmds[0], want)
	}
}

func TestGroupRefresh(t *testing.T) {
	g := NewLightGroup(testGroup(), &fakeExecutor{}, nil)

	next := testGroup()
	next.Name = "Kitchen renamed"
	next.Power = false
	next.Brightness = 10
	g.Refresh(next)

	if got := g.Name(); got != "Kitchen renamed" {
		t.Errorf("Name() = %q, want %q", got, "Kitchen renamed")
	}
	if g.IsOn() {
		t.Error("IsOn() = true after refresh with powered-off group")
	}
	if got := g.Brightness(); got != 10 {
		t.Errorf("Brightness() = %d, want 10", got)
	}
}

func TestGroupCaps(t *testing.T) {
	g := NewLightGroup(testGroup(), &fakeExecutor{}, nil)

	caps := g.Caps()
	if !caps.Brightness || !caps.Transition {
		t.Errorf("Caps() = %+v, want brightness and transition", caps)
	}
	if caps.ColorTemp || caps.XYColor || caps.RGBColor {
		t.Errorf("Caps() = %+v, groups must not expose color control", caps)
	}
}
