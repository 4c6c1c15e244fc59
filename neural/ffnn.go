package neural

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pthm-cable/circuit/config"
)

// Network is a two-layer feed-forward network, NumInputs -> hidden -> NumOutputs,
// with tanh on both layers.
//
// Until its first Train call (or until it is bred from parents) it ignores
// its weights and answers with uniform random responses.
type Network struct {
	W1 [][NumInputs]float64  // input -> hidden weights
	B1 []float64             // hidden biases
	W2 [NumOutputs][]float64 // hidden -> output weights
	B2 [NumOutputs]float64   // output biases

	trained      bool
	samples      []Sample
	maxSamples   int
	learningRate float64
	bootstrap    float64
}

// NewNetwork creates a randomly initialized, untrained network.
func NewNetwork(rng *rand.Rand, cfg config.PolicyConfig) *Network {
	nn := newShape(cfg)
	hidden := len(nn.B1)

	// Xavier initialization
	scale1 := math.Sqrt(2.0 / float64(NumInputs))
	scale2 := math.Sqrt(2.0 / float64(hidden))

	for i := range nn.W1 {
		for j := range nn.W1[i] {
			nn.W1[i][j] = rng.NormFloat64() * scale1
		}
	}
	for i := range nn.W2 {
		for j := range nn.W2[i] {
			nn.W2[i][j] = rng.NormFloat64() * scale2
		}
	}
	return nn
}

// NetworkFromGenome rebuilds a trained network from a flat parameter vector.
func NetworkFromGenome(g []float64, cfg config.PolicyConfig) (*Network, error) {
	nn := newShape(cfg)
	if len(g) != nn.GenomeLen() {
		return nil, fmt.Errorf("%w: genome has %d genes, network needs %d",
			ErrIncompatiblePolicy, len(g), nn.GenomeLen())
	}
	nn.unflatten(g)
	nn.trained = true
	return nn, nil
}

func newShape(cfg config.PolicyConfig) *Network {
	h := cfg.HiddenNeurons
	nn := &Network{
		W1:           make([][NumInputs]float64, h),
		B1:           make([]float64, h),
		maxSamples:   cfg.MaxSamples,
		learningRate: cfg.LearningRate,
		bootstrap:    cfg.BootstrapRange,
	}
	for i := range nn.W2 {
		nn.W2[i] = make([]float64, h)
	}
	return nn
}

func (nn *Network) Kind() Kind { return KindNetwork }

func (nn *Network) Trained() bool { return nn.trained }

// Hidden returns the hidden layer width.
func (nn *Network) Hidden() int { return len(nn.B1) }

// GenomeLen is the number of parameters.
func (nn *Network) GenomeLen() int {
	h := len(nn.B1)
	return h*NumInputs + h + NumOutputs*h + NumOutputs
}

// Ask returns the network's response, or a random one while untrained.
func (nn *Network) Ask(in Inputs, rng *rand.Rand) Response {
	if !nn.trained {
		return Response{
			Accelerate: (rng.Float64() - 0.5) * nn.bootstrap,
			Turn:       (rng.Float64() - 0.5) * nn.bootstrap,
		}
	}
	out, _ := nn.forward(in)
	return Response{Accelerate: out[0], Turn: out[1]}
}

// Forward evaluates the network regardless of its trained state.
func (nn *Network) Forward(in Inputs) Response {
	out, _ := nn.forward(in)
	return Response{Accelerate: out[0], Turn: out[1]}
}

func (nn *Network) forward(in Inputs) ([NumOutputs]float64, []float64) {
	hidden := make([]float64, len(nn.B1))
	for i := range hidden {
		sum := nn.B1[i]
		for j := 0; j < NumInputs; j++ {
			sum += nn.W1[i][j] * in[j]
		}
		hidden[i] = math.Tanh(sum)
	}

	var out [NumOutputs]float64
	for i := 0; i < NumOutputs; i++ {
		sum := nn.B2[i]
		for j, h := range hidden {
			sum += nn.W2[i][j] * h
		}
		out[i] = math.Tanh(sum)
	}
	return out, hidden
}

// Record stores samples for the next training epoch.
func (nn *Network) Record(samples ...Sample) {
	nn.samples = appendCapped(nn.samples, nn.maxSamples, samples...)
}

// Samples returns the number of samples waiting for training.
func (nn *Network) Samples() int { return len(nn.samples) }

// Train runs one epoch of stochastic gradient descent on squared error over
// the recorded samples, then clears them and marks the network trained.
func (nn *Network) Train() error {
	for _, s := range nn.samples {
		nn.backprop(s)
	}
	nn.samples = nn.samples[:0]
	nn.trained = true
	return nil
}

func (nn *Network) backprop(s Sample) {
	out, hidden := nn.forward(s.Inputs)
	target := [NumOutputs]float64{clampUnit(s.Response.Accelerate), clampUnit(s.Response.Turn)}

	var dOut [NumOutputs]float64
	for i := range out {
		dOut[i] = (out[i] - target[i]) * (1 - out[i]*out[i])
	}

	dHidden := make([]float64, len(hidden))
	for j, h := range hidden {
		var sum float64
		for i := range dOut {
			sum += dOut[i] * nn.W2[i][j]
		}
		dHidden[j] = sum * (1 - h*h)
	}

	lr := nn.learningRate
	for i := range dOut {
		for j, h := range hidden {
			nn.W2[i][j] -= lr * dOut[i] * h
		}
		nn.B2[i] -= lr * dOut[i]
	}
	for j := range dHidden {
		for k := 0; k < NumInputs; k++ {
			nn.W1[j][k] -= lr * dHidden[j] * s.Inputs[k]
		}
		nn.B1[j] -= lr * dHidden[j]
	}
}

// Loss returns the mean squared error of the network over samples.
func (nn *Network) Loss(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		out, _ := nn.forward(s.Inputs)
		da := out[0] - clampUnit(s.Response.Accelerate)
		dt := out[1] - clampUnit(s.Response.Turn)
		sum += da*da + dt*dt
	}
	return sum / float64(len(samples))
}

// Genome flattens the parameters in W1, B1, W2, B2 order.
func (nn *Network) Genome() []float64 {
	g := make([]float64, 0, nn.GenomeLen())
	for i := range nn.W1 {
		g = append(g, nn.W1[i][:]...)
	}
	g = append(g, nn.B1...)
	for i := range nn.W2 {
		g = append(g, nn.W2[i]...)
	}
	return append(g, nn.B2[:]...)
}

func (nn *Network) unflatten(g []float64) {
	idx := 0
	for i := range nn.W1 {
		idx += copy(nn.W1[i][:], g[idx:])
	}
	idx += copy(nn.B1, g[idx:idx+len(nn.B1)])
	for i := range nn.W2 {
		idx += copy(nn.W2[i], g[idx:idx+len(nn.W2[i])])
	}
	copy(nn.B2[:], g[idx:])
}

// CrossWith breeds a trained offspring with another network of the same shape.
func (nn *Network) CrossWith(other Policy, rng *rand.Rand) (Policy, error) {
	o, ok := other.(*Network)
	if !ok || o.Hidden() != nn.Hidden() {
		return nil, fmt.Errorf("%w: network with %s", ErrIncompatiblePolicy, describe(other))
	}
	child := nn.Clone().(*Network)
	child.samples = nil
	child.unflatten(Crossover(nn.Genome(), o.Genome(), rng))
	child.trained = true
	return child, nil
}

// Mutate applies MutateGenome to the parameters.
func (nn *Network) Mutate(rng *rand.Rand, p float64) int {
	g := nn.Genome()
	n := MutateGenome(g, p, rng)
	nn.unflatten(g)
	return n
}

// Clone creates a deep copy of the network, pending samples included.
func (nn *Network) Clone() Policy {
	clone := newShape(config.PolicyConfig{
		HiddenNeurons:  nn.Hidden(),
		MaxSamples:     nn.maxSamples,
		LearningRate:   nn.learningRate,
		BootstrapRange: nn.bootstrap,
	})
	clone.unflatten(nn.Genome())
	clone.trained = nn.trained
	clone.samples = append([]Sample(nil), nn.samples...)
	return clone
}

func describe(p Policy) string {
	if p == nil {
		return "nil policy"
	}
	return string(p.Kind())
}
