package neural

import (
	"errors"
	"math/rand"
	"testing"
)

func TestCrossoverGenesComeFromParents(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	a := make([]float64, 50)
	b := make([]float64, 50)
	for i := range a {
		a[i] = float64(i)
		b[i] = -float64(i) - 1
	}

	for trial := 0; trial < 200; trial++ {
		child := Crossover(a, b, rng)
		if len(child) != len(a) {
			t.Fatalf("child length: got %d, want %d", len(child), len(a))
		}

		// Single point: at most one switch between parents
		switches := 0
		for i := range child {
			if child[i] != a[i] && child[i] != b[i] {
				t.Fatalf("gene %d = %f is from neither parent", i, child[i])
			}
			if i > 0 && (child[i] == a[i]) != (child[i-1] == a[i-1]) {
				switches++
			}
		}
		if switches > 1 {
			t.Fatalf("crossover switched parents %d times", switches)
		}
	}
}

func TestCrossoverUsesBothOrders(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := []float64{1, 1, 1, 1}
	b := []float64{2, 2, 2, 2}

	firstFromA, firstFromB := false, false
	for i := 0; i < 100; i++ {
		child := Crossover(a, b, rng)
		switch child[0] {
		case 1:
			firstFromA = true
		case 2:
			firstFromB = true
		}
	}
	if !firstFromA || !firstFromB {
		t.Error("crossover never let one of the parents lead")
	}
}

func TestMutateGenomeProbability(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	g := make([]float64, 10000)
	for i := range g {
		g[i] = 1
	}
	n := MutateGenome(g, 0.2, rng)
	if n < 1800 || n > 2200 {
		t.Errorf("mutated %d of 10000 genes at p=0.2", n)
	}

	// v*(r1-0.5)*3 + (r2-0.5) with v=1 stays within [-2, 2]
	for i, v := range g {
		if v < -2 || v > 2 {
			t.Fatalf("gene %d out of range: %f", i, v)
		}
	}

	untouched := []float64{3, 4, 5}
	if MutateGenome(untouched, 0, rng) != 0 || untouched[0] != 3 {
		t.Error("p=0 changed genes")
	}
}

func TestCrossWithIncompatible(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cfg := testPolicyConfig()
	nn := NewNetwork(rng, cfg)
	reg := NewRegression(cfg)

	if _, err := nn.CrossWith(reg, rng); !errors.Is(err, ErrIncompatiblePolicy) {
		t.Errorf("network x regression: got %v", err)
	}
	if _, err := reg.CrossWith(nn, rng); !errors.Is(err, ErrIncompatiblePolicy) {
		t.Errorf("regression x network: got %v", err)
	}

	wide := cfg
	wide.HiddenNeurons = cfg.HiddenNeurons + 2
	if _, err := nn.CrossWith(NewNetwork(rng, wide), rng); !errors.Is(err, ErrIncompatiblePolicy) {
		t.Errorf("different widths: got %v", err)
	}
}

func TestNetworkCrossWithKeepsParentGenes(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cfg := testPolicyConfig()
	a := NewNetwork(rng, cfg)
	b := NewNetwork(rng, cfg)

	child, err := a.CrossWith(b, rng)
	if err != nil {
		t.Fatalf("CrossWith failed: %v", err)
	}
	if !child.Trained() {
		t.Error("offspring should be trained")
	}

	ga, gb, gc := a.Genome(), b.Genome(), child.Genome()
	for i := range gc {
		if gc[i] != ga[i] && gc[i] != gb[i] {
			t.Fatalf("offspring gene %d is from neither parent", i)
		}
	}
}

func TestNewPolicyKinds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cfg := testPolicyConfig()

	for _, kind := range []Kind{KindNetwork, KindRegression} {
		p, err := New(kind, cfg, rng)
		if err != nil {
			t.Fatalf("New(%s) failed: %v", kind, err)
		}
		if p.Kind() != kind {
			t.Errorf("New(%s) returned %s", kind, p.Kind())
		}
	}

	if _, err := New("svm", cfg, rng); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("unknown kind: got %v", err)
	}
}

func TestFromGenome(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	cfg := testPolicyConfig()

	for _, kind := range []Kind{KindNetwork, KindRegression} {
		src, _ := New(kind, cfg, rng)
		src.Mutate(rng, 1)
		g := src.Genome()

		p, err := FromGenome(kind, g, cfg)
		if err != nil {
			t.Fatalf("FromGenome(%s) failed: %v", kind, err)
		}
		if !p.Trained() {
			t.Errorf("%s from genome should be trained", kind)
		}
		got := p.Genome()
		for i := range g {
			if got[i] != g[i] {
				t.Fatalf("%s gene %d: got %f, want %f", kind, i, got[i], g[i])
			}
		}

		if _, err := FromGenome(kind, g[:len(g)-1], cfg); !errors.Is(err, ErrIncompatiblePolicy) {
			t.Errorf("%s short genome: got %v", kind, err)
		}
	}
}
