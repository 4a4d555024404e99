package annealing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoPacer(t *testing.T) {
	assert.NoError(t, NoPacer{}.Pause(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NoPacer{}.Pause(ctx), context.Canceled)
}

func TestRatePacerSpacesIterations(t *testing.T) {
	p := NewRatePacer(20 * time.Millisecond)
	start := time.Now()
	for i := 0; i < 3; i++ {
		assert.NoError(t, p.Pause(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRatePacerZeroIntervalNeverWaits(t *testing.T) {
	p := NewRatePacer(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		assert.NoError(t, p.Pause(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestRatePacerHonorsCancellation(t *testing.T) {
	p := NewRatePacer(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, p.Pause(ctx))
}
