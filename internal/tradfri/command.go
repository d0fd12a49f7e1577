package tradfri

import (
	"context"
	"errors"
	"fmt"
)

// Op identifies the single mutation a command performs.
type Op int

const (
	OpSetPower Op = iota
	OpSetBrightness
	OpSetColorTemp
	OpSetColor
)

// String returns a human-readable op name for logs and metrics.
func (o Op) String() string {
	switch o {
	case OpSetPower:
		return "set_power"
	case OpSetBrightness:
		return "set_brightness"
	case OpSetColorTemp:
		return "set_color_temp"
	case OpSetColor:
		return "set_color"
	default:
		return "unknown"
	}
}

// TargetKind distinguishes device commands from group commands.
type TargetKind int

const (
	TargetDevice TargetKind = iota
	TargetGroup
)

// String returns a human-readable target kind for logs and metrics.
func (k TargetKind) String() string {
	switch k {
	case TargetDevice:
		return "device"
	case TargetGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Target names the gateway resource a command applies to.
type Target struct {
	Kind TargetKind
	ID   string
}

// Command is a single mutation submitted to the gateway. Exactly one op per
// command; only the fields belonging to that op are meaningful. Transition is
// in tenths of a second and is omitted from the wire payload when nil.
type Command struct {
	Target     Target
	Op         Op
	Power      bool
	Brightness uint8
	ColorTemp  uint16
	X, Y       float64
	Transition *uint16
}

// Executor submits one command to the gateway and waits for its result.
type Executor interface {
	Execute(ctx context.Context, cmd Command) error
}

// execute submits commands sequentially, each awaited before the next. An
// early failure does not cancel later commands; all failures are reported.
func execute(ctx context.Context, exec Executor, cmds []Command) error {
	var errs []error
	for _, cmd := range cmds {
		err := exec.Execute(ctx, cmd)
		result := "ok"
		if err != nil {
			result = "error"
			errs = append(errs, fmt.Errorf("%s: %w", cmd.Op, err))
		}
		commandsTotal.WithLabelValues(cmd.Target.Kind.String(), cmd.Op.String(), result).Inc()
	}
	return errors.Join(errs...)
}
