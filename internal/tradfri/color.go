package tradfri

import "github.com/lucasb-eyer/go-colorful"

// RGBToXY converts an sRGB triple to the CIE 1931 xy pair the gateway
// speaks. The conversion is deterministic; luminance is discarded since
// brightness travels on the dimmer channel.
func RGBToXY(c RGB) XY {
	col := colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
	x, y, _ := col.Xyy()
	return XY{X: x, Y: y}
}
