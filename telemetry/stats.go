package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GenerationStats is one row of generations.csv. Fitness is lower-is-better.
type GenerationStats struct {
	RunID      string `csv:"run_id"`
	Generation int    `csv:"generation"`
	Track      string `csv:"track"` // hex fingerprint of the move sequence
	Ticks      int    `csv:"ticks"`
	Population int    `csv:"population"`

	// Fitness distribution
	BestFitness  float64 `csv:"best_fitness"`
	MeanFitness  float64 `csv:"mean_fitness"`
	StdFitness   float64 `csv:"std_fitness"`
	P10Fitness   float64 `csv:"p10_fitness"`
	P50Fitness   float64 `csv:"p50_fitness"`
	P90Fitness   float64 `csv:"p90_fitness"`
	WorstFitness float64 `csv:"worst_fitness"`

	// Best agent
	BestID       int `csv:"best_id"`
	BestLaps     int `csv:"best_laps"`
	BestProgress int `csv:"best_progress"`
	BestTicks    int `csv:"best_ticks"`

	// How agents ended
	Crashed   int `csv:"crashed"`
	OffTrack  int `csv:"off_track"`
	Stagnated int `csv:"stagnated"`
	Runaway   int `csv:"runaway"`
	TimedOut  int `csv:"timed_out"`

	// Evolution
	Culled        int `csv:"culled"`
	TrainFailures int `csv:"train_failures"`
}

// SetStatuses fills the end-status columns from counts keyed by status name.
func (s *GenerationStats) SetStatuses(counts map[string]int) {
	s.Crashed = counts["crashed"]
	s.OffTrack = counts["off_track"]
	s.Stagnated = counts["stagnated"]
	s.Runaway = counts["runaway"]
	s.TimedOut = counts["timed_out"]
}

// SetFitness fills the fitness distribution columns.
func (s *GenerationStats) SetFitness(values []float64) {
	s.Population = len(values)
	s.BestFitness, s.MeanFitness, s.StdFitness, s.P10Fitness, s.P50Fitness, s.P90Fitness, s.WorstFitness =
		ComputeFitnessStats(values)
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeFitnessStats returns min, mean, population standard deviation,
// p10/p50/p90 and max of values. All zeros for an empty slice.
func ComputeFitnessStats(values []float64) (best, mean, std, p10, p50, p90, worst float64) {
	n := len(values)
	if n == 0 {
		return
	}

	mean = stat.Mean(values, nil)
	std = stat.PopStdDev(values, nil)
	best = floats.Min(values)
	worst = floats.Max(values)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)
	return
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("ticks", s.Ticks),
		slog.Int("population", s.Population),
		slog.Float64("best_fitness", s.BestFitness),
		slog.Float64("mean_fitness", s.MeanFitness),
		slog.Float64("std_fitness", s.StdFitness),
		slog.Float64("p50_fitness", s.P50Fitness),
		slog.Int("best_id", s.BestID),
		slog.Int("best_laps", s.BestLaps),
		slog.Int("best_progress", s.BestProgress),
		slog.Int("crashed", s.Crashed),
		slog.Int("off_track", s.OffTrack),
		slog.Int("stagnated", s.Stagnated),
		slog.Int("runaway", s.Runaway),
		slog.Int("timed_out", s.TimedOut),
		slog.Int("train_failures", s.TrainFailures),
	)
}
