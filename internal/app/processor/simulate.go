package processor

import "math/rand"

// Simulator decides whether a validated order suffers a synthetic failure,
// modeling an unreliable downstream dependency. It is injectable so tests can
// force either outcome deterministically.
type Simulator func() bool

// NewSimulator returns a Simulator that fires with the given probability
// using the supplied randomness source.
func NewSimulator(probability float64, rnd *rand.Rand) Simulator {
	return func() bool {
		return rnd.Float64() < probability
	}
}

// NeverFail is the Simulator used when failure simulation is disabled.
func NeverFail() bool { return false }
