package annealing

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcceptDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tests := []struct {
		name       string
		current    float64
		candidates []Candidate
		wantMove   Move
		wantOK     bool
	}{
		{
			name:    "picks best improvement",
			current: 1,
			candidates: []Candidate{
				{Move{0, 10}, 2},
				{Move{0, -10}, 5},
				{Move{1, 10}, 3},
			},
			wantMove: Move{0, -10},
			wantOK:   true,
		},
		{
			name:    "first move wins ties",
			current: 1,
			candidates: []Candidate{
				{Move{0, 10}, 0},
				{Move{1, 10}, 4},
				{Move{2, -10}, 4},
			},
			wantMove: Move{1, 10},
			wantOK:   true,
		},
		{
			name:    "equal fitness is not an improvement",
			current: 4,
			candidates: []Candidate{
				{Move{0, 10}, 4},
				{Move{1, 10}, 3},
			},
			wantOK: false,
		},
		{
			name:    "all worse",
			current: 10,
			candidates: []Candidate{
				{Move{0, 10}, 1},
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, temp := range []float64{FloorTemperature, FloorTemperature / 2} {
				move, ok := Accept(tt.current, tt.candidates, temp, rng)
				assert.Equal(t, tt.wantOK, ok)
				if tt.wantOK {
					assert.Equal(t, tt.wantMove, move)
				}
			}
		})
	}
}

func TestAcceptStochasticTakesNonWorseCandidate(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	candidates := []Candidate{
		{Move{0, 10}, 5},
		{Move{1, 10}, 5},
		{Move{2, 10}, 6},
	}
	seen := map[Move]bool{}
	for i := 0; i < 200; i++ {
		move, ok := Accept(5, candidates, 0.5, rng)
		assert.True(t, ok)
		seen[move] = true
	}
	// Sampling is uniform over all candidates, not just the best.
	assert.Len(t, seen, len(candidates))
}

func TestAcceptStochasticMetropolis(t *testing.T) {
	candidates := []Candidate{{Move{0, 10}, 0}}

	t.Run("huge loss is rejected", func(t *testing.T) {
		rng := rand.New(rand.NewSource(11))
		for i := 0; i < 100; i++ {
			_, ok := Accept(1e6, candidates, 0.5, rng)
			assert.False(t, ok)
		}
	})

	t.Run("acceptance rate follows exp(-delta/T)", func(t *testing.T) {
		rng := rand.New(rand.NewSource(12))
		const (
			trials = 20000
			delta  = 0.3
			temp   = 0.5
		)
		accepted := 0
		for i := 0; i < trials; i++ {
			if _, ok := Accept(delta, candidates, temp, rng); ok {
				accepted++
			}
		}
		want := math.Exp(-delta / temp)
		assert.InDelta(t, want, float64(accepted)/trials, 0.02)
	})
}

func TestAcceptEmpty(t *testing.T) {
	_, ok := Accept(0, nil, 1, rand.New(rand.NewSource(1)))
	assert.False(t, ok)
}
