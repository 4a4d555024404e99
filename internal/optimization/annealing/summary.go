package annealing

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
)

// Summary aggregates the metrics sequence of a run.
type Summary struct {
	Iterations       int     `json:"iterations"`
	MeanFitness      float64 `json:"mean_fitness"`
	StdDevFitness    float64 `json:"stddev_fitness"`
	BestFitness      float64 `json:"best_fitness"`
	BestIteration    int     `json:"best_iteration"`
	FinalFitness     float64 `json:"final_fitness"`
	FinalTemperature float64 `json:"final_temperature"`
}

// Summarize computes fitness statistics over metrics. An empty sequence yields
// a zero Summary.
func Summarize(metrics []optimization.MetricsRecord) Summary {
	if len(metrics) == 0 {
		return Summary{}
	}
	fitness := make([]float64, len(metrics))
	for i, m := range metrics {
		fitness[i] = m.Fitness
	}
	mean, std := stat.MeanStdDev(fitness, nil)
	if len(fitness) < 2 {
		std = 0
	}
	best := floats.MaxIdx(fitness)
	last := metrics[len(metrics)-1]
	return Summary{
		Iterations:       len(metrics),
		MeanFitness:      mean,
		StdDevFitness:    std,
		BestFitness:      fitness[best],
		BestIteration:    metrics[best].Iteration,
		FinalFitness:     last.Fitness,
		FinalTemperature: last.Temperature,
	}
}
