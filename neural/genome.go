package neural

import "math/rand"

// Crossover performs single-point crossover on two equal-length genomes.
// A coin flip decides which parent supplies the genes before the split; the
// split index is uniform in [0, len]. Every child gene comes from one parent.
func Crossover(a, b []float64, rng *rand.Rand) []float64 {
	if rng.Intn(2) == 0 {
		a, b = b, a
	}
	split := rng.Intn(len(a) + 1)
	child := make([]float64, len(a))
	copy(child[:split], a[:split])
	copy(child[split:], b[split:])
	return child
}

// MutateGenome replaces each gene with probability p by
// v*(r1-0.5)*3 + (r2-0.5). Returns the number of genes changed.
func MutateGenome(g []float64, p float64, rng *rand.Rand) int {
	n := 0
	for i, v := range g {
		if rng.Float64() >= p {
			continue
		}
		g[i] = v*(rng.Float64()-0.5)*3 + (rng.Float64() - 0.5)
		n++
	}
	return n
}
