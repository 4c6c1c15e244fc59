// Package neural provides the driving policies: an evolvable feed-forward
// network and a least-squares regression model.
package neural

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/circuit/config"
)

// Policy dimensions.
const (
	NumInputs  = 3 // left, center, right sensor distances
	NumOutputs = 2 // acceleration, turn
)

// Inputs are scaled sensor distances in left, center, right order.
// A missing reading is 0.
type Inputs [NumInputs]float64

// Response is a control decision. Both fields lie in [-1, 1].
type Response struct {
	Accelerate float64 `json:"accelerate"`
	Turn       float64 `json:"turn"`
}

// Sample is one recorded (inputs, response) pair.
type Sample struct {
	Inputs   Inputs   `json:"inputs"`
	Response Response `json:"response"`
}

// Kind selects a policy variant.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindRegression Kind = "regression"
)

var (
	// ErrIncompatiblePolicy is returned when crossing policies of different kinds or shapes.
	ErrIncompatiblePolicy = errors.New("incompatible policies")
	// ErrUnknownKind is returned by New for an unrecognised kind.
	ErrUnknownKind = errors.New("unknown policy kind")
	// ErrSingularFit is returned when a regression fit is ill-conditioned; the previous model is kept.
	ErrSingularFit = errors.New("singular regression fit")
)

// Policy maps sensor inputs to control responses and can be trained and evolved.
type Policy interface {
	Kind() Kind

	// Ask returns a response for the inputs. rng is only used by untrained
	// policies that explore randomly.
	Ask(in Inputs, rng *rand.Rand) Response

	// Record stores samples for the next Train call.
	Record(samples ...Sample)

	// Train fits the policy to the recorded samples.
	Train() error

	// Trained reports whether Ask uses the learned model.
	Trained() bool

	// Genome returns a copy of the parameters as a flat vector.
	Genome() []float64

	// CrossWith creates an offspring by single-point crossover of both genomes.
	CrossWith(other Policy, rng *rand.Rand) (Policy, error)

	// Mutate perturbs each parameter with probability p and returns how many changed.
	Mutate(rng *rand.Rand, p float64) int

	Clone() Policy
}

// New creates an untrained policy of the given kind.
func New(kind Kind, cfg config.PolicyConfig, rng *rand.Rand) (Policy, error) {
	switch kind {
	case KindNetwork:
		return NewNetwork(rng, cfg), nil
	case KindRegression:
		return NewRegression(cfg), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// FromGenome rebuilds a trained policy of the given kind from a flat genome.
func FromGenome(kind Kind, g []float64, cfg config.PolicyConfig) (Policy, error) {
	switch kind {
	case KindNetwork:
		return NetworkFromGenome(g, cfg)
	case KindRegression:
		return RegressionFromGenome(g, cfg)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// clampUnit clamps v to [-1, 1].
func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// appendCapped appends samples and drops the oldest beyond max (0 = unbounded).
func appendCapped(dst []Sample, max int, samples ...Sample) []Sample {
	dst = append(dst, samples...)
	if max > 0 && len(dst) > max {
		dst = append(dst[:0], dst[len(dst)-max:]...)
	}
	return dst
}
