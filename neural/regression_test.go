package neural

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestRegressionZeroBeforeFit(t *testing.T) {
	r := NewRegression(testPolicyConfig())
	if r.Trained() {
		t.Error("new regression should be unfitted")
	}
	if got := r.Ask(Inputs{1, 2, 3}, nil); got != (Response{}) {
		t.Errorf("unfitted response: got %+v, want zero", got)
	}
}

func TestRegressionRecoversLinearMapping(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := NewRegression(testPolicyConfig())

	target := func(in Inputs) Response {
		return Response{
			Accelerate: 0.1 + 0.2*in[0] - 0.3*in[1] + 0.1*in[2],
			Turn:       -0.2 + 0.4*in[0] - 0.4*in[2],
		}
	}
	for i := 0; i < 200; i++ {
		in := Inputs{rng.Float64(), rng.Float64(), rng.Float64()}
		r.Record(Sample{Inputs: in, Response: target(in)})
	}

	if err := r.Train(); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if !r.Trained() {
		t.Fatal("regression should be fitted")
	}

	probe := Inputs{0.25, 0.5, 0.75}
	got, want := r.Ask(probe, nil), target(probe)
	if math.Abs(got.Accelerate-want.Accelerate) > 1e-6 || math.Abs(got.Turn-want.Turn) > 1e-6 {
		t.Errorf("prediction: got %+v, want %+v", got, want)
	}

	g := r.Genome()
	if math.Abs(g[0]-0.1) > 1e-6 || math.Abs(g[1]+0.2) > 1e-6 {
		t.Errorf("bias coefficients: got %f, %f", g[0], g[1])
	}
}

func TestRegressionSingularKeepsModel(t *testing.T) {
	cfg := testPolicyConfig()
	r, err := RegressionFromGenome([]float64{0.5, -0.5, 0, 0, 0, 0, 0, 0}, cfg)
	if err != nil {
		t.Fatal(err)
	}

	// Constant inputs leave the system rank deficient
	for i := 0; i < 10; i++ {
		r.Record(Sample{Inputs: Inputs{1, 1, 1}, Response: Response{Accelerate: 1}})
	}
	if err := r.Train(); !errors.Is(err, ErrSingularFit) {
		t.Fatalf("expected ErrSingularFit, got %v", err)
	}

	got := r.Ask(Inputs{}, nil)
	if got.Accelerate != 0.5 || got.Turn != -0.5 {
		t.Errorf("model changed after singular fit: %+v", got)
	}
}

func TestRegressionTooFewSamples(t *testing.T) {
	r := NewRegression(testPolicyConfig())
	r.Record(Sample{Inputs: Inputs{1, 2, 3}})
	if err := r.Train(); !errors.Is(err, ErrSingularFit) {
		t.Errorf("expected ErrSingularFit, got %v", err)
	}
	if r.Trained() {
		t.Error("regression fitted from one sample")
	}
}

func TestRegressionSamplesCapped(t *testing.T) {
	cfg := testPolicyConfig()
	cfg.MaxSamples = 10
	r := NewRegression(cfg)
	for i := 0; i < 25; i++ {
		r.Record(Sample{Inputs: Inputs{float64(i)}})
	}
	if r.Samples() != 10 {
		t.Errorf("samples: got %d, want 10", r.Samples())
	}
	if r.samples[0].Inputs[0] != 15 {
		t.Errorf("oldest kept sample: got %f, want 15", r.samples[0].Inputs[0])
	}
}

func TestRegressionOutputsClamped(t *testing.T) {
	r, err := RegressionFromGenome([]float64{5, -5, 0, 0, 0, 0, 0, 0}, testPolicyConfig())
	if err != nil {
		t.Fatal(err)
	}
	got := r.Ask(Inputs{}, nil)
	if got.Accelerate != 1 || got.Turn != -1 {
		t.Errorf("clamped response: got %+v", got)
	}
}

func TestRegressionCrossAndMutate(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cfg := testPolicyConfig()
	a, _ := RegressionFromGenome([]float64{1, 1, 1, 1, 1, 1, 1, 1}, cfg)
	b, _ := RegressionFromGenome([]float64{2, 2, 2, 2, 2, 2, 2, 2}, cfg)

	child, err := a.CrossWith(b, rng)
	if err != nil {
		t.Fatalf("CrossWith failed: %v", err)
	}
	if !child.Trained() {
		t.Error("offspring should be fitted")
	}
	for i, v := range child.Genome() {
		if v != 1 && v != 2 {
			t.Fatalf("gene %d = %f is from neither parent", i, v)
		}
	}

	unfitted := NewRegression(cfg)
	if n := unfitted.Mutate(rng, 1); n != 8 {
		t.Errorf("mutated %d genes, want 8", n)
	}
	if !unfitted.Trained() {
		t.Error("mutated regression should be fitted")
	}
}
