package annealing

// ConvergenceTracker counts consecutive iterations in which no move was
// accepted and signals convergence once the patience budget is used up.
// The count never exceeds the budget.
type ConvergenceTracker struct {
	patience int
	stale    int
}

// NewConvergenceTracker creates a tracker with the given patience budget.
func NewConvergenceTracker(patience int) *ConvergenceTracker {
	if patience < 0 {
		patience = 0
	}
	return &ConvergenceTracker{patience: patience}
}

// Reject records an iteration without an accepted move and returns true when
// the run has converged.
func (c *ConvergenceTracker) Reject() bool {
	if c.stale < c.patience {
		c.stale++
	}
	return c.stale >= c.patience
}

// Accept records an accepted move.
func (c *ConvergenceTracker) Accept() {
	c.stale = 0
}

// Stale returns the current number of consecutive rejected iterations.
func (c *ConvergenceTracker) Stale() int {
	return c.stale
}

// Patience returns the configured budget.
func (c *ConvergenceTracker) Patience() int {
	return c.patience
}
