package fitness

import (
	"math/rand"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
)

func vectorOf(colors ...optimization.RGB) optimization.Vector {
	var v optimization.Vector
	for i, c := range colors {
		v[3*i], v[3*i+1], v[3*i+2] = c.R, c.G, c.B
	}
	return v
}

func TestContrastRatio(t *testing.T) {
	black := colorful.Color{}
	white := colorful.Color{R: 1, G: 1, B: 1}

	assert.InDelta(t, 21.0, ContrastRatio(black, white), 1e-9)
	assert.InDelta(t, 21.0, ContrastRatio(white, black), 1e-9, "symmetric")
	assert.InDelta(t, 1.0, ContrastRatio(white, white), 1e-9)
}

func TestHueDistance(t *testing.T) {
	assert.Equal(t, 0.0, hueDistance(10, 10))
	assert.Equal(t, 20.0, hueDistance(350, 10))
	assert.Equal(t, 180.0, hueDistance(0, 180))
	assert.Equal(t, 90.0, hueDistance(300, 30))
}

func TestBandScore(t *testing.T) {
	assert.Equal(t, 1.0, bandScore(0.1, 0.05, 0.15))
	assert.Equal(t, 0.0, bandScore(0, 0.05, 0.15))
	assert.InDelta(t, 0.5, bandScore(0.025, 0.05, 0.15), 1e-12)
	assert.InDelta(t, 0.5, bandScore(0.2, 0.05, 0.15), 1e-12)
	assert.Equal(t, 0.0, bandScore(1, 0.05, 0.15))
}

func TestNewComplementaryValidatesWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"defaults", DefaultWeights(), false},
		{"single criterion", Weights{TextContrast: 1}, false},
		{"all zero", Weights{}, true},
		{"negative", Weights{AccentHarmony: -1, TextContrast: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewComplementary(tt.weights)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, optimization.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestScoreRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c, err := NewComplementary(DefaultWeights())
	require.NoError(t, err)

	for n := 0; n < 500; n++ {
		var v optimization.Vector
		for i := range v {
			v[i] = rng.Intn(256)
		}
		anchor := optimization.RGB{R: rng.Intn(256), G: rng.Intn(256), B: rng.Intn(256)}

		s := Score(anchor, v)
		for _, x := range s.vector() {
			require.GreaterOrEqual(t, x, 0.0)
			require.LessOrEqual(t, x, 1.0)
		}

		f, err := c.Evaluate(anchor, v)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, f, 0.0)
		assert.LessOrEqual(t, f, 1.0)

		again, _ := c.Evaluate(anchor, v)
		assert.Equal(t, f, again, "evaluation is deterministic")
	}
}

func TestComplementaryPrefersReadableComplement(t *testing.T) {
	c, err := NewComplementary(DefaultWeights())
	require.NoError(t, err)

	anchor := optimization.RGB{R: 0, G: 0, B: 255} // blue, complement is yellow

	good := vectorOf(
		optimization.RGB{R: 250, G: 200, B: 0},   // accent: amber
		optimization.RGB{R: 245, G: 245, B: 245}, // background: near white
		optimization.RGB{R: 225, G: 225, B: 228}, // surface: light grey
		optimization.RGB{R: 20, G: 20, B: 20},    // button text: near black
		optimization.RGB{R: 15, G: 15, B: 30},    // main text: dark navy
	)
	bad := vectorOf(
		optimization.RGB{R: 0, G: 0, B: 255},     // accent equals anchor
		optimization.RGB{R: 255, G: 0, B: 0},     // saturated background
		optimization.RGB{R: 255, G: 0, B: 0},     // surface identical to background
		optimization.RGB{R: 0, G: 0, B: 250},     // button text on same blue
		optimization.RGB{R: 250, G: 10, B: 10},   // main text matches background
	)

	gf, err := c.Evaluate(anchor, good)
	require.NoError(t, err)
	bf, err := c.Evaluate(anchor, bad)
	require.NoError(t, err)
	assert.Greater(t, gf, bf)
	assert.Greater(t, gf, 0.8)
	assert.Less(t, bf, 0.3)

	gs := Score(anchor, good)
	assert.Greater(t, gs.AccentHarmony, 0.85)
	assert.Equal(t, 1.0, gs.TextContrast)
}

func TestDefaultOracle(t *testing.T) {
	c := Default()
	anchor := optimization.RGB{R: 51, G: 102, B: 255}
	var v optimization.Vector
	for i := range v {
		v[i] = (i * 37) % 256
	}
	f, err := c.Evaluate(anchor, v)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f, 0.0)
	assert.LessOrEqual(t, f, 1.0)
	assert.Equal(t, Score(anchor, v), c.Breakdown(anchor, v))
}
