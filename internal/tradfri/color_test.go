package tradfri

import (
	"math"
	"testing"
)

func TestRGBToXY(t *testing.T) {
	tests := []struct {
		name  string
		rgb   RGB
		wantX float64
		wantY float64
	}{
		// sRGB primaries land on their defined chromaticities.
		{name: "red", rgb: RGB{R: 255, G: 0, B: 0}, wantX: 0.640, wantY: 0.330},
		{name: "green", rgb: RGB{R: 0, G: 255, B: 0}, wantX: 0.300, wantY: 0.600},
		{name: "blue", rgb: RGB{R: 0, G: 0, B: 255}, wantX: 0.150, wantY: 0.060},
		// White and black both resolve to the D65 white point; black has no
		// chromaticity of its own.
		{name: "white", rgb: RGB{R: 255, G: 255, B: 255}, wantX: 0.3127, wantY: 0.3290},
		{name: "black", rgb: RGB{R: 0, G: 0, B: 0}, wantX: 0.3127, wantY: 0.3290},
	}

	const tolerance = 0.005

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RGBToXY(tt.rgb)
			if math.Abs(got.X-tt.wantX) > tolerance {
				t.Errorf("RGBToXY(%+v).X = %.4f, want %.4f", tt.rgb, got.X, tt.wantX)
			}
			if math.Abs(got.Y-tt.wantY) > tolerance {
				t.Errorf("RGBToXY(%+v).Y = %.4f, want %.4f", tt.rgb, got.Y, tt.wantY)
			}
		})
	}
}

func TestRGBToXYDeterministic(t *testing.T) {
	rgb := RGB{R: 120, G: 200, B: 40}
	first := RGBToXY(rgb)
	second := RGBToXY(rgb)
	if first != second {
		t.Errorf("RGBToXY not deterministic: %+v vs %+v", first, second)
	}
}
