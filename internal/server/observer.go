package server

import (
	"time"

	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization/annealing"
)

// runObserver feeds a run's progress into the service metrics and the event
// stream. It runs on the search goroutine, so it only does non-blocking work.
type runObserver struct {
	id      string
	metrics *searchMetrics
	events  *EventBroadcaster
}

func (o *runObserver) IterationCompleted(rec optimization.MetricsRecord, accepted bool) {
	o.metrics.iterationCompleted(accepted)
	o.events.Broadcast(ProgressEvent{
		RunID:       o.id,
		State:       optimization.StateRunning,
		Iteration:   rec.Iteration,
		Fitness:     rec.Fitness,
		Temperature: rec.Temperature,
		Accepted:    accepted,
		Timestamp:   time.Now(),
	})
}

func (o *runObserver) RunFinished(snap annealing.Snapshot) {
	o.metrics.runFinished(snap.State, snap.Iteration, snap.Metrics)
	o.events.Broadcast(progressFromSnapshot(o.id, snap))
}

var _ annealing.Observer = (*runObserver)(nil)
