package annealing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
)

func TestNeighborsBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		gene  int
		moves []int
	}{
		{"zero only increases", 0, []int{StepSize}},
		{"just below lower guard", 59, []int{StepSize}},
		{"lower guard moves both ways", 60, []int{StepSize, -StepSize}},
		{"middle moves both ways", 128, []int{StepSize, -StepSize}},
		{"upper guard moves both ways", 245, []int{StepSize, -StepSize}},
		{"just above upper guard", 246, []int{-StepSize}},
		{"max only decreases", 255, []int{-StepSize}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v optimization.Vector
			for i := range v {
				v[i] = 128
			}
			v[0] = tt.gene

			var deltas []int
			for _, m := range Neighbors(v) {
				if m.Index == 0 {
					deltas = append(deltas, m.Delta)
				}
			}
			assert.Equal(t, tt.moves, deltas)
		})
	}
}

func TestNeighborsOrdering(t *testing.T) {
	var v optimization.Vector
	for i := range v {
		v[i] = 100
	}
	v[3] = 10
	v[7] = 250

	moves := Neighbors(v)
	require.Len(t, moves, 2*optimization.VectorLen-2)

	for i := 1; i < len(moves); i++ {
		prev, cur := moves[i-1], moves[i]
		require.LessOrEqual(t, prev.Index, cur.Index, "moves must be in gene order")
		if prev.Index == cur.Index {
			assert.Equal(t, StepSize, prev.Delta, "+step must precede -step")
			assert.Equal(t, -StepSize, cur.Delta)
		}
	}
}

func TestNeighborsStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 2000; n++ {
		var v optimization.Vector
		for i := range v {
			v[i] = rng.Intn(optimization.ChannelMax + 1)
		}
		moves := Neighbors(v)
		require.NotEmpty(t, moves)
		for _, m := range moves {
			next := Apply(v, m)
			for i, gene := range next {
				require.GreaterOrEqual(t, gene, optimization.ChannelMin, "gene %d of %v after %+v", i, v, m)
				require.LessOrEqual(t, gene, optimization.ChannelMax, "gene %d of %v after %+v", i, v, m)
			}
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	var v optimization.Vector
	v[2] = 100
	next := Apply(v, Move{Index: 2, Delta: -StepSize})
	assert.Equal(t, 100, v[2])
	assert.Equal(t, 90, next[2])
}
