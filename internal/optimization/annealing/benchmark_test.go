package annealing

import (
	"context"
	"testing"

	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
)

// BenchmarkStep measures one full iteration: 1 + up to 30 oracle calls.
func BenchmarkStep(b *testing.B) {
	d := NewDriver(targetOracle(128))
	cfg := optimization.Config{Patience: 1 << 30, DecayRate: 100, MaxIterations: 1 << 30, Seed: 1}
	run, err := d.Start(cfg, testAnchor)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := run.Step(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkNeighbors(b *testing.B) {
	var v optimization.Vector
	for i := range v {
		v[i] = 17 * i
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Neighbors(v)
	}
}
