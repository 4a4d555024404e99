package annealing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
)

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	one := Summarize([]optimization.MetricsRecord{{Iteration: 0, Fitness: 2, Temperature: 0.5}})
	assert.Equal(t, 1, one.Iterations)
	assert.Equal(t, 0.0, one.StdDevFitness)
	assert.Equal(t, 2.0, one.BestFitness)

	s := Summarize([]optimization.MetricsRecord{
		{Iteration: 0, Fitness: 1, Temperature: 0.9},
		{Iteration: 1, Fitness: 3, Temperature: 0.81},
		{Iteration: 2, Fitness: 3, Temperature: 0.729},
		{Iteration: 3, Fitness: 2, Temperature: 0.6561},
	})
	assert.Equal(t, 4, s.Iterations)
	assert.InDelta(t, 2.25, s.MeanFitness, 1e-12)
	assert.InDelta(t, 0.957427, s.StdDevFitness, 1e-6)
	assert.Equal(t, 3.0, s.BestFitness)
	assert.Equal(t, 1, s.BestIteration, "first best wins")
	assert.Equal(t, 2.0, s.FinalFitness)
	assert.Equal(t, 0.6561, s.FinalTemperature)
}
