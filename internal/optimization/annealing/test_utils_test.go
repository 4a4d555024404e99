package annealing

import (
	"errors"
	"math"
	"sync"

	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
)

var testAnchor = optimization.RGB{R: 51, G: 102, B: 255}

// targetOracle rewards vectors close to a fixed gene value.
func targetOracle(target int) optimization.FitnessFunc {
	return func(_ optimization.RGB, v optimization.Vector) (float64, error) {
		sum := 0.0
		for _, g := range v {
			sum += math.Abs(float64(g - target))
		}
		return -sum, nil
	}
}

// pinnedOracle heavily penalizes any departure from origin, so no neighbor is
// ever accepted.
type pinnedOracle struct {
	mu     sync.Mutex
	origin optimization.Vector
}

func (p *pinnedOracle) pin(v optimization.Vector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.origin = v
}

func (p *pinnedOracle) Evaluate(_ optimization.RGB, v optimization.Vector) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sum := 0.0
	for i := range v {
		sum += math.Abs(float64(v[i] - p.origin[i]))
	}
	return -1e6 * sum, nil
}

// countingOracle wraps another oracle, failing after a number of calls.
type countingOracle struct {
	next      optimization.FitnessOracle
	failAfter int

	mu    sync.Mutex
	calls int
}

var errBoom = errors.New("boom")

func (c *countingOracle) Evaluate(anchor optimization.RGB, v optimization.Vector) (float64, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()
	if c.failAfter > 0 && n > c.failAfter {
		return 0, errBoom
	}
	return c.next.Evaluate(anchor, v)
}

func (c *countingOracle) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// recordingObserver captures everything a run reports.
type recordingObserver struct {
	mu       sync.Mutex
	records  []optimization.MetricsRecord
	accepted int
	finished []Snapshot
}

func (o *recordingObserver) IterationCompleted(rec optimization.MetricsRecord, accepted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, rec)
	if accepted {
		o.accepted++
	}
}

func (o *recordingObserver) RunFinished(snap Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, snap)
}

func (o *recordingObserver) finishedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.finished)
}
