package tradfri

import "time"

// DimmerMax is the gateway's dimmer ceiling. The generic light model allows
// brightness up to 255; requests for 255 are clamped down to this value.
const DimmerMax = 254

// XY is a CIE 1931 chromaticity pair.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RGB is an sRGB triple. The gateway has no RGB surface, so these are
// converted to xy before sending.
type RGB struct {
	R, G, B uint8
}

// Options are the optional attributes of a turn-on request. Nil fields were
// not part of the request.
type Options struct {
	Brightness *uint8
	ColorTemp  *uint16
	XY         *XY
	RGB        *RGB
	Transition *time.Duration
}

func clampBrightness(b uint8) uint8 {
	if b > DimmerMax {
		return DimmerMax
	}
	return b
}

// transitionTenths converts a transition duration to the gateway's
// tenths-of-a-second unit. Fractional seconds truncate before scaling:
// 1500ms becomes 10 tenths, 500ms becomes 0.
func transitionTenths(d *time.Duration) *uint16 {
	if d == nil {
		return nil
	}
	tenths := uint16(*d/time.Second) * 10
	return &tenths
}
