package bridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dokzlo13/tradfrid/internal/tradfri"
)

// Payloads follow the Home Assistant MQTT JSON light schema.

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
	stateOn        = "ON"
	stateOff       = "OFF"
)

const (
	colorModeXY         = "xy"
	colorModeColorTemp  = "color_temp"
	colorModeBrightness = "brightness"
)

type statePayload struct {
	State      string   `json:"state"`
	Brightness *uint8   `json:"brightness,omitempty"`
	ColorTemp  *uint16  `json:"color_temp,omitempty"`
	Color      *xyColor `json:"color,omitempty"`
	ColorMode  string   `json:"color_mode,omitempty"`
}

type xyColor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// commandPayload is an inbound set request. All fields are optional; Home
// Assistant sends transitions as (possibly fractional) seconds.
type commandPayload struct {
	State      string        `json:"state,omitempty"`
	Brightness *uint8        `json:"brightness,omitempty"`
	ColorTemp  *uint16       `json:"color_temp,omitempty"`
	Color      *colorCommand `json:"color,omitempty"`
	Transition *float64      `json:"transition,omitempty"`
}

type colorCommand struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
	R *uint8   `json:"r,omitempty"`
	G *uint8   `json:"g,omitempty"`
	B *uint8   `json:"b,omitempty"`
}

func decodeCommand(payload []byte) (commandPayload, error) {
	var p commandPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return commandPayload{}, fmt.Errorf("decode command: %w", err)
	}
	return p, nil
}

func (p commandPayload) isOff() bool {
	return strings.EqualFold(p.State, stateOff)
}

// options maps the request onto adapter turn-on options. A complete xy pair
// wins over an rgb triple when both are present.
func (p commandPayload) options() tradfri.Options {
	opts := tradfri.Options{
		Brightness: p.Brightness,
		ColorTemp:  p.ColorTemp,
	}
	if p.Color != nil {
		switch {
		case p.Color.X != nil && p.Color.Y != nil:
			opts.XY = &tradfri.XY{X: *p.Color.X, Y: *p.Color.Y}
		case p.Color.R != nil && p.Color.G != nil && p.Color.B != nil:
			opts.RGB = &tradfri.RGB{R: *p.Color.R, G: *p.Color.G, B: *p.Color.B}
		}
	}
	if p.Transition != nil {
		d := time.Duration(*p.Transition * float64(time.Second))
		opts.Transition = &d
	}
	return opts
}

// lightState renders the retained state message for a light.
func lightState(rec tradfri.LightRecord) statePayload {
	p := statePayload{State: stateOff}
	if rec.Snapshot.Powered {
		p.State = stateOn
	}

	brightness := rec.Snapshot.Brightness
	p.Brightness = &brightness

	if rec.Caps.ColorTemp && rec.Snapshot.ColorTemp > 0 {
		temp := rec.Snapshot.ColorTemp
		p.ColorTemp = &temp
	}
	if rec.Snapshot.XY != nil {
		p.Color = &xyColor{X: rec.Snapshot.XY.X, Y: rec.Snapshot.XY.Y}
	}

	switch {
	case p.Color != nil:
		p.ColorMode = colorModeXY
	case p.ColorTemp != nil:
		p.ColorMode = colorModeColorTemp
	default:
		p.ColorMode = colorModeBrightness
	}
	return p
}

// groupState renders the retained state message for a group.
func groupState(rec tradfri.GroupRecord) statePayload {
	p := statePayload{State: stateOff, ColorMode: colorModeBrightness}
	if rec.Snapshot.Powered {
		p.State = stateOn
	}
	brightness := rec.Snapshot.Brightness
	p.Brightness = &brightness
	return p
}

func availabilityPayload(available bool) []byte {
	if available {
		return []byte(payloadOnline)
	}
	return []byte(payloadOffline)
}
