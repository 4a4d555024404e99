// Package fitness provides the default palette fitness oracle.
package fitness

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
)

const (
	// TargetTextContrast is the WCAG AAA contrast for normal text.
	TargetTextContrast = 7.0
	// TargetButtonContrast is the WCAG AA contrast for normal text.
	TargetButtonContrast = 4.5

	// Surface and background should be close but distinguishable (Lab distance).
	surfaceMinDistance = 0.05
	surfaceMaxDistance = 0.15
)

// Weights controls how much each criterion contributes to the fitness.
type Weights struct {
	AccentHarmony     float64 `json:"accent_harmony"`
	TextContrast      float64 `json:"text_contrast"`
	ButtonContrast    float64 `json:"button_contrast"`
	SurfaceSeparation float64 `json:"surface_separation"`
	BackgroundCalm    float64 `json:"background_calm"`
}

// DefaultWeights favors readability, then harmony with the anchor.
func DefaultWeights() Weights {
	return Weights{
		AccentHarmony:     3,
		TextContrast:      4,
		ButtonContrast:    2,
		SurfaceSeparation: 1,
		BackgroundCalm:    1,
	}
}

func (w Weights) vector() []float64 {
	return []float64{w.AccentHarmony, w.TextContrast, w.ButtonContrast, w.SurfaceSeparation, w.BackgroundCalm}
}

// Scores holds per-criterion scores, each in [0, 1].
type Scores struct {
	AccentHarmony     float64 `json:"accent_harmony"`
	TextContrast      float64 `json:"text_contrast"`
	ButtonContrast    float64 `json:"button_contrast"`
	SurfaceSeparation float64 `json:"surface_separation"`
	BackgroundCalm    float64 `json:"background_calm"`
}

func (s Scores) vector() []float64 {
	return []float64{s.AccentHarmony, s.TextContrast, s.ButtonContrast, s.SurfaceSeparation, s.BackgroundCalm}
}

// Complementary scores a palette by how well its accent complements the anchor
// hue and how readable and balanced the remaining roles are. The result is a
// weighted mean in [0, 1].
type Complementary struct {
	weights []float64
	total   float64
}

// NewComplementary returns an oracle using w. Weights must be non-negative and
// not all zero.
func NewComplementary(w Weights) (*Complementary, error) {
	ws := w.vector()
	for _, x := range ws {
		if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, optimization.WrapErrorf(optimization.ErrInvalidConfig, "fitness weight %v must be finite and >= 0", x).
				WithComponent("fitness").WithOperation("NewComplementary")
		}
	}
	total := floats.Sum(ws)
	if total == 0 {
		return nil, optimization.WrapError(optimization.ErrInvalidConfig, "at least one fitness weight must be positive").
			WithComponent("fitness").WithOperation("NewComplementary")
	}
	return &Complementary{weights: ws, total: total}, nil
}

// Default returns the oracle configured with DefaultWeights.
func Default() *Complementary {
	c, err := NewComplementary(DefaultWeights())
	if err != nil {
		panic(err)
	}
	return c
}

// Evaluate implements optimization.FitnessOracle.
func (c *Complementary) Evaluate(anchor optimization.RGB, v optimization.Vector) (float64, error) {
	return floats.Dot(c.weights, Score(anchor, v).vector()) / c.total, nil
}

// Breakdown returns the per-criterion scores behind Evaluate.
func (c *Complementary) Breakdown(anchor optimization.RGB, v optimization.Vector) Scores {
	return Score(anchor, v)
}

// Score computes the per-criterion scores of v against anchor.
func Score(anchor optimization.RGB, v optimization.Vector) Scores {
	accent := v.Color(optimization.RoleAccent).Colorful()
	background := v.Color(optimization.RoleBackground).Colorful()
	surface := v.Color(optimization.RoleSurface).Colorful()
	buttonText := v.Color(optimization.RoleButtonText).Colorful()
	mainText := v.Color(optimization.RoleMainText).Colorful()

	anchorHue, _, _ := anchor.Colorful().Hsv()
	accentHue, _, _ := accent.Hsv()
	complement := math.Mod(anchorHue+180, 360)

	_, bgSat, _ := background.Hsv()

	return Scores{
		AccentHarmony:     1 - hueDistance(accentHue, complement)/180,
		TextContrast:      clamp01((ContrastRatio(mainText, background) - 1) / (TargetTextContrast - 1)),
		ButtonContrast:    clamp01((ContrastRatio(buttonText, accent) - 1) / (TargetButtonContrast - 1)),
		SurfaceSeparation: bandScore(surface.DistanceLab(background), surfaceMinDistance, surfaceMaxDistance),
		BackgroundCalm:    clamp01(1 - bgSat),
	}
}

// bandScore is 1 inside [lo, hi], rises linearly from 0 at x = 0 below the
// band and falls off by the band width above it.
func bandScore(x, lo, hi float64) float64 {
	switch {
	case x < lo:
		return clamp01(x / lo)
	case x > hi:
		return clamp01(1 - (x-hi)/(hi-lo))
	default:
		return 1
	}
}

var _ optimization.FitnessOracle = (*Complementary)(nil)
