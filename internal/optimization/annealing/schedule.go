package annealing

const (
	// InitialTemperature is the temperature at the start of every run.
	InitialTemperature = 1.0

	// FloorTemperature is the lowest temperature a run reaches. At or below it
	// the acceptance policy is deterministic.
	FloorTemperature = 0.001
)

// NextTemperature applies one step of geometric cooling with rate given as a
// percentage in [0, 100]. Once t is at the floor it is held there.
func NextTemperature(t, rate float64) float64 {
	if t <= FloorTemperature {
		return t
	}
	next := t * (rate / 100)
	if next < FloorTemperature {
		return FloorTemperature
	}
	return next
}
