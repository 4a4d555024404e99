package annealing

import (
	"math"
	"math/rand"
)

// Candidate pairs a move with the fitness of the vector it leads to.
type Candidate struct {
	Move    Move
	Fitness float64
}

// Deterministic reports whether the acceptance policy is in hill-climbing mode
// at temperature t.
func Deterministic(t float64) bool {
	return t <= FloorTemperature
}

// Accept chooses a move given the current fitness, the scored candidates and
// the temperature. The boolean result is false when no move is taken.
//
// At or below FloorTemperature the best strictly improving candidate is taken,
// first in candidate order on ties. Above it a single candidate is drawn
// uniformly at random and accepted if it does not lose fitness, or otherwise
// with the Metropolis probability exp(-|delta|/t).
func Accept(current float64, candidates []Candidate, t float64, rng *rand.Rand) (Move, bool) {
	if len(candidates) == 0 {
		return Move{}, false
	}
	if Deterministic(t) {
		return bestImprovement(current, candidates)
	}

	c := candidates[rng.Intn(len(candidates))]
	if c.Fitness >= current {
		return c.Move, true
	}
	p := math.Exp(-math.Abs(c.Fitness-current) / t)
	if rng.Float64() < p {
		return c.Move, true
	}
	return Move{}, false
}

func bestImprovement(current float64, candidates []Candidate) (Move, bool) {
	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Fitness > candidates[best].Fitness {
			best = i
		}
	}
	if candidates[best].Fitness > current {
		return candidates[best].Move, true
	}
	return Move{}, false
}
