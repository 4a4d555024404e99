package annealing

import "github.com/agrawal-rohit/palette-auto-generator/internal/optimization"

const (
	// StepSize is the magnitude of a single gene adjustment.
	StepSize = 10

	// Genes below lowerGuard only move up, genes above upperGuard only move down.
	lowerGuard = 60
	upperGuard = 245
)

// Move is a single-gene adjustment of the solution vector.
type Move struct {
	Index int `json:"index"`
	Delta int `json:"delta"`
}

// Neighbors enumerates the legal moves from v in gene order, +StepSize before
// -StepSize. Every resulting gene stays within [0, 255] without clamping.
func Neighbors(v optimization.Vector) []Move {
	moves := make([]Move, 0, 2*len(v))
	for i, gene := range v {
		switch {
		case gene < lowerGuard:
			moves = append(moves, Move{Index: i, Delta: StepSize})
		case gene > upperGuard:
			moves = append(moves, Move{Index: i, Delta: -StepSize})
		default:
			moves = append(moves, Move{Index: i, Delta: StepSize}, Move{Index: i, Delta: -StepSize})
		}
	}
	return moves
}

// Apply returns a copy of v with the move applied.
func Apply(v optimization.Vector, m Move) optimization.Vector {
	v[m.Index] += m.Delta
	return v
}
