// Package annealing implements the simulated-annealing palette search: the
// neighbor topology, the two-phase acceptance policy, geometric cooling,
// patience-based convergence and the driver that ties them into a
// restartable, cancellable state machine.
package annealing

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
)

// Observer receives progress of a run. Callbacks are invoked synchronously on
// the goroutine advancing the run and must not block.
type Observer interface {
	IterationCompleted(rec optimization.MetricsRecord, accepted bool)
	RunFinished(snap Snapshot)
}

// Option configures a Driver.
type Option func(*Driver)

// WithPacer sets the pacing strategy used by Run.RunToCompletion.
func WithPacer(p Pacer) Option {
	return func(d *Driver) {
		if p != nil {
			d.pacer = p
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithObserver registers an observer for every run started by the driver.
func WithObserver(o Observer) Option {
	return func(d *Driver) {
		d.observer = o
	}
}

// Driver owns the search state machine. It starts runs one at a time; the run
// it returns is the only writer of its solution vector.
type Driver struct {
	oracle   optimization.FitnessOracle
	pacer    Pacer
	logger   *zap.Logger
	observer Observer

	mu      sync.Mutex
	current *Run
}

// NewDriver creates a driver scoring candidates with oracle.
func NewDriver(oracle optimization.FitnessOracle, opts ...Option) *Driver {
	d := &Driver{
		oracle: oracle,
		pacer:  NoPacer{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named("annealing")
	return d
}

// Start validates the configuration and anchor, then begins a fresh run with a
// newly seeded vector, temperature 1.0, an empty patience counter and no
// metrics. No iteration executes until the run is stepped.
func (d *Driver) Start(cfg optimization.Config, anchor optimization.RGB) (*Run, error) {
	const op = "Driver.Start"

	if d.oracle == nil {
		return nil, optimization.WrapError(optimization.ErrInvalidConfig, "fitness oracle is required").
			WithComponent("annealing").WithOperation(op)
	}
	if err := cfg.Validate(); err != nil {
		return nil, optimization.WrapError(err, "rejected run configuration").
			WithComponent("annealing").WithOperation(op)
	}
	if err := anchor.Validate(); err != nil {
		return nil, optimization.WrapError(err, "rejected anchor color").
			WithComponent("annealing").WithOperation(op)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil && d.current.State() == optimization.StateRunning && !d.current.stopRequested() {
		return nil, optimization.WrapError(optimization.ErrRunInProgress, "cannot start a new run").
			WithComponent("annealing").WithOperation(op)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var vector optimization.Vector
	for i := range vector {
		vector[i] = rng.Intn(optimization.ChannelMax + 1)
	}

	run := &Run{
		cfg:         cfg,
		anchor:      anchor,
		seed:        seed,
		oracle:      d.oracle,
		pacer:       d.pacer,
		observer:    d.observer,
		rng:         rng,
		stopCh:      make(chan struct{}),
		tracker:     NewConvergenceTracker(cfg.Patience),
		state:       optimization.StateRunning,
		vector:      vector,
		temperature: InitialTemperature,
		metrics:     make([]optimization.MetricsRecord, 0, min(cfg.MaxIterations, 4096)),
		startedAt:   time.Now(),
	}
	run.logger = d.logger.With(
		zap.Int64("seed", seed),
		zap.String("anchor", anchor.Hex()),
	)
	d.current = run

	run.logger.Info("Run started",
		zap.Int("patience", cfg.Patience),
		zap.Float64("decay_rate", cfg.DecayRate),
		zap.Int("max_iterations", cfg.MaxIterations),
	)
	return run, nil
}

// Current returns the most recently started run, or nil.
func (d *Driver) Current() *Run {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// State returns StateIdle before the first run, otherwise the state of the
// current run.
func (d *Driver) State() optimization.State {
	run := d.Current()
	if run == nil {
		return optimization.StateIdle
	}
	return run.State()
}
