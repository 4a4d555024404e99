package annealing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
)

// Snapshot is an immutable copy of a run's state.
type Snapshot struct {
	State       optimization.State
	Config      optimization.Config
	Anchor      optimization.RGB
	Seed        int64
	Vector      optimization.Vector
	Temperature float64
	Stale       int
	Iteration   int
	Metrics     []optimization.MetricsRecord
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Run is a single search from a random seed vector to a terminal state.
// Iterations are serialized; observers read it through snapshots.
type Run struct {
	cfg      optimization.Config
	anchor   optimization.RGB
	seed     int64
	oracle   optimization.FitnessOracle
	pacer    Pacer
	observer Observer
	logger   *zap.Logger

	// Owned by the goroutine holding stepMu.
	stepMu  sync.Mutex
	rng     *rand.Rand
	tracker *ConvergenceTracker

	stopOnce sync.Once
	stopCh   chan struct{}

	mu          sync.RWMutex
	state       optimization.State
	vector      optimization.Vector
	temperature float64
	stale       int
	iteration   int
	metrics     []optimization.MetricsRecord
	err         error
	startedAt   time.Time
	finishedAt  time.Time
}

// Stop requests cooperative cancellation; completed iterations are kept. When
// no Step is in flight the run moves to StateStopped before Stop returns.
// Otherwise the iteration in progress completes and the run stops at the top
// of the next Step. Stop is idempotent.
func (r *Run) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.logger.Debug("Stop requested")
	})

	if !r.stepMu.TryLock() {
		return
	}
	defer r.stepMu.Unlock()
	if r.State() == optimization.StateRunning {
		r.finish(optimization.StateStopped, nil)
	}
}

func (r *Run) stopRequested() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

// Step executes one iteration: score the current vector and all of its
// neighbors, pick a move, cool down, record metrics, then apply the move or
// count a rejection. It returns the state after the iteration.
func (r *Run) Step(ctx context.Context) (optimization.State, error) {
	const op = "Run.Step"

	r.stepMu.Lock()
	defer r.stepMu.Unlock()

	if state := r.State(); state != optimization.StateRunning {
		return state, optimization.WrapErrorf(optimization.ErrNotRunning, "run is %s", state).
			WithComponent("annealing").WithOperation(op)
	}
	if r.stopRequested() || ctx.Err() != nil {
		r.finish(optimization.StateStopped, nil)
		return optimization.StateStopped, nil
	}

	r.mu.RLock()
	vector, temperature, iteration := r.vector, r.temperature, r.iteration
	r.mu.RUnlock()

	current, err := r.evaluate(vector)
	if err != nil {
		r.finish(optimization.StateStopped, err)
		return optimization.StateStopped, err
	}

	moves := Neighbors(vector)
	candidates := make([]Candidate, len(moves))
	for i, m := range moves {
		f, err := r.evaluate(Apply(vector, m))
		if err != nil {
			r.finish(optimization.StateStopped, err)
			return optimization.StateStopped, err
		}
		candidates[i] = Candidate{Move: m, Fitness: f}
	}

	move, accepted := Accept(current, candidates, temperature, r.rng)
	next := NextTemperature(temperature, r.cfg.DecayRate)
	rec := optimization.MetricsRecord{
		Iteration:   iteration,
		Fitness:     current,
		Temperature: next,
	}

	state := optimization.StateRunning
	if accepted {
		r.tracker.Accept()
		vector = Apply(vector, move)
	} else if r.tracker.Reject() {
		state = optimization.StateConverged
	}
	if iteration+1 >= r.cfg.MaxIterations {
		state = optimization.StateExhausted
	}

	r.mu.Lock()
	r.vector = vector
	r.temperature = next
	r.stale = r.tracker.Stale()
	r.metrics = append(r.metrics, rec)
	r.iteration = iteration + 1
	r.mu.Unlock()

	r.logger.Debug("Iteration completed",
		zap.Int("iteration", iteration),
		zap.Float64("fitness", current),
		zap.Float64("temperature", next),
		zap.Bool("accepted", accepted),
		zap.Bool("deterministic", Deterministic(temperature)),
		zap.Int("stale", r.tracker.Stale()),
	)
	if r.observer != nil {
		r.observer.IterationCompleted(rec, accepted)
	}

	if state.Terminal() {
		r.finish(state, nil)
	}
	return state, nil
}

// RunToCompletion steps the run until it reaches a terminal state, pausing
// through the pacer between iterations. Cancelling ctx stops the run the same
// way Stop does and returns ctx.Err().
func (r *Run) RunToCompletion(ctx context.Context) (Snapshot, error) {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-loopCtx.Done():
		}
	}()

	for {
		state, err := r.Step(loopCtx)
		if err != nil {
			if errors.Is(err, optimization.ErrNotRunning) {
				return r.Snapshot(), nil
			}
			return r.Snapshot(), err
		}
		if state.Terminal() {
			if state == optimization.StateStopped && !r.stopRequested() && ctx.Err() != nil {
				return r.Snapshot(), ctx.Err()
			}
			return r.Snapshot(), nil
		}
		// A pause interrupted by cancellation is picked up by the next Step.
		_ = r.pacer.Pause(loopCtx)
	}
}

func (r *Run) evaluate(v optimization.Vector) (float64, error) {
	f, err := r.oracle.Evaluate(r.anchor, v)
	if err == nil && math.IsNaN(f) {
		err = errors.New("fitness is NaN")
	}
	if err != nil {
		return 0, optimization.WrapError(fmt.Errorf("%w: %w", optimization.ErrOracleFailure, err), "fitness evaluation failed").
			WithComponent("annealing").WithOperation("Run.evaluate")
	}
	return f, nil
}

func (r *Run) finish(state optimization.State, err error) {
	r.mu.Lock()
	r.state = state
	r.err = err
	r.finishedAt = time.Now()
	r.mu.Unlock()

	fields := []zap.Field{
		zap.String("state", string(state)),
		zap.Int("iterations", r.Iteration()),
		zap.Duration("elapsed", r.finishedAt.Sub(r.startedAt)),
	}
	if err != nil {
		r.logger.Error("Run failed", append(fields, zap.Error(err))...)
	} else {
		r.logger.Info("Run finished", fields...)
	}

	if r.observer != nil {
		r.observer.RunFinished(r.Snapshot())
	}
}

// State returns the current lifecycle state.
func (r *Run) State() optimization.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Iteration returns the number of completed iterations.
func (r *Run) Iteration() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.iteration
}

// Vector returns the current solution vector.
func (r *Run) Vector() optimization.Vector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vector
}

// Err returns the failure that stopped the run, if any.
func (r *Run) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Metrics returns a copy of the metrics records from index since onwards.
func (r *Run) Metrics(since int) []optimization.MetricsRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if since < 0 {
		since = 0
	}
	if since >= len(r.metrics) {
		return []optimization.MetricsRecord{}
	}
	out := make([]optimization.MetricsRecord, len(r.metrics)-since)
	copy(out, r.metrics[since:])
	return out
}

// Snapshot returns a consistent copy of the run.
func (r *Run) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	metrics := make([]optimization.MetricsRecord, len(r.metrics))
	copy(metrics, r.metrics)
	return Snapshot{
		State:       r.state,
		Config:      r.cfg,
		Anchor:      r.anchor,
		Seed:        r.seed,
		Vector:      r.vector,
		Temperature: r.temperature,
		Stale:       r.stale,
		Iteration:   r.iteration,
		Metrics:     metrics,
		Err:         r.err,
		StartedAt:   r.startedAt,
		FinishedAt:  r.finishedAt,
	}
}
