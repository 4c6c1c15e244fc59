package neural

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/circuit/config"
)

// regressionRows is the design row width: bias plus one column per input.
const regressionRows = NumInputs + 1

// Regression is a linear least-squares policy:
// [1, left, center, right] x coef -> [accelerate, turn].
// Samples accumulate across generations up to a cap and every Train refits.
type Regression struct {
	coef       *mat.Dense // regressionRows x NumOutputs, nil before the first fit
	samples    []Sample
	maxSamples int
}

// NewRegression creates an unfitted regression policy.
func NewRegression(cfg config.PolicyConfig) *Regression {
	return &Regression{maxSamples: cfg.MaxSamples}
}

// RegressionFromGenome rebuilds a fitted regression policy from its coefficients.
func RegressionFromGenome(g []float64, cfg config.PolicyConfig) (*Regression, error) {
	if len(g) != regressionRows*NumOutputs {
		return nil, fmt.Errorf("%w: genome has %d genes, regression needs %d",
			ErrIncompatiblePolicy, len(g), regressionRows*NumOutputs)
	}
	r := NewRegression(cfg)
	r.coef = mat.NewDense(regressionRows, NumOutputs, append([]float64(nil), g...))
	return r, nil
}

func (r *Regression) Kind() Kind { return KindRegression }

func (r *Regression) Trained() bool { return r.coef != nil }

// Ask returns the fitted response, or a zero response before any fit.
func (r *Regression) Ask(in Inputs, _ *rand.Rand) Response {
	if r.coef == nil {
		return Response{}
	}
	x := [regressionRows]float64{1, in[0], in[1], in[2]}
	var out [NumOutputs]float64
	for j := 0; j < NumOutputs; j++ {
		for i, v := range x {
			out[j] += v * r.coef.At(i, j)
		}
	}
	return Response{Accelerate: clampUnit(out[0]), Turn: clampUnit(out[1])}
}

// Record adds samples to the accumulated set.
func (r *Regression) Record(samples ...Sample) {
	r.samples = appendCapped(r.samples, r.maxSamples, samples...)
}

// Samples returns the number of accumulated samples.
func (r *Regression) Samples() int { return len(r.samples) }

// Train refits the model on every accumulated sample. An ill-conditioned
// system keeps the previous model and returns ErrSingularFit.
func (r *Regression) Train() error {
	n := len(r.samples)
	if n < regressionRows {
		return fmt.Errorf("%w: %d samples for %d unknowns", ErrSingularFit, n, regressionRows)
	}

	x := mat.NewDense(n, regressionRows, nil)
	y := mat.NewDense(n, NumOutputs, nil)
	for i, s := range r.samples {
		x.Set(i, 0, 1)
		for j, v := range s.Inputs {
			x.Set(i, j+1, v)
		}
		y.Set(i, 0, clampUnit(s.Response.Accelerate))
		y.Set(i, 1, clampUnit(s.Response.Turn))
	}

	var coef mat.Dense
	if err := coef.Solve(x, y); err != nil {
		return fmt.Errorf("%w: %v", ErrSingularFit, err)
	}
	r.coef = &coef
	return nil
}

// Genome returns the coefficients row-major; zeros before the first fit.
func (r *Regression) Genome() []float64 {
	g := make([]float64, regressionRows*NumOutputs)
	if r.coef == nil {
		return g
	}
	for i := 0; i < regressionRows; i++ {
		for j := 0; j < NumOutputs; j++ {
			g[i*NumOutputs+j] = r.coef.At(i, j)
		}
	}
	return g
}

// CrossWith breeds a fitted offspring with another regression policy.
// The offspring inherits the receiver's accumulated samples.
func (r *Regression) CrossWith(other Policy, rng *rand.Rand) (Policy, error) {
	o, ok := other.(*Regression)
	if !ok {
		return nil, fmt.Errorf("%w: regression with %s", ErrIncompatiblePolicy, describe(other))
	}
	child := &Regression{
		coef:       mat.NewDense(regressionRows, NumOutputs, Crossover(r.Genome(), o.Genome(), rng)),
		samples:    append([]Sample(nil), r.samples...),
		maxSamples: r.maxSamples,
	}
	return child, nil
}

// Mutate applies MutateGenome to the coefficients. An unfitted model starts
// from zeros and becomes fitted.
func (r *Regression) Mutate(rng *rand.Rand, p float64) int {
	g := r.Genome()
	n := MutateGenome(g, p, rng)
	r.coef = mat.NewDense(regressionRows, NumOutputs, g)
	return n
}

func (r *Regression) Clone() Policy {
	c := &Regression{
		samples:    append([]Sample(nil), r.samples...),
		maxSamples: r.maxSamples,
	}
	if r.coef != nil {
		c.coef = mat.DenseCopyOf(r.coef)
	}
	return c
}
