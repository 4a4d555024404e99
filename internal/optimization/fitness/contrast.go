package fitness

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// RelativeLuminance returns the WCAG 2 relative luminance of c in [0, 1].
func RelativeLuminance(c colorful.Color) float64 {
	r, g, b := c.Clamped().LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// ContrastRatio returns the WCAG contrast ratio between two colors, in [1, 21].
func ContrastRatio(a, b colorful.Color) float64 {
	la, lb := RelativeLuminance(a), RelativeLuminance(b)
	hi, lo := math.Max(la, lb), math.Min(la, lb)
	return (hi + 0.05) / (lo + 0.05)
}

// hueDistance returns the angular distance between two hues in degrees, in [0, 180].
func hueDistance(h1, h2 float64) float64 {
	d := math.Mod(math.Abs(h1-h2), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
