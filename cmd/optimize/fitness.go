package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/game"
	"github.com/pthm-cable/circuit/telemetry"
	"github.com/pthm-cable/circuit/track"
)

// FitnessEvaluator runs headless evolutions and scores parameter vectors.
type FitnessEvaluator struct {
	params      *ParamVector
	generations int
	seeds       []int64
	baseConfig  *config.Config
	parallel    int

	// Best run tracking
	mu             sync.Mutex
	bestFitness    float64
	bestHallOfFame *telemetry.HallOfFame
	lastLaps       int // best lap count from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. parallel bounds how many seeds
// run at once (0 = all).
func NewFitnessEvaluator(params *ParamVector, generations int, seeds []int64, baseCfg *config.Config, parallel int) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		generations: generations,
		seeds:       seeds,
		baseConfig:  baseCfg,
		parallel:    parallel,
		bestFitness: math.Inf(1),
	}
}

// BestHallOfFame returns the hall of fame from the best evaluation.
func (fe *FitnessEvaluator) BestHallOfFame() *telemetry.HallOfFame {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHallOfFame
}

// LastLaps returns the most laps any agent completed in the latest evaluation.
func (fe *FitnessEvaluator) LastLaps() int {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastLaps
}

// scoreTail is the share of final generations averaged into a run's score.
const scoreTail = 0.25

// runResult holds the results from a single evolution run.
type runResult struct {
	score      float64
	laps       int
	hallOfFame *telemetry.HallOfFame
}

// Evaluate scores a parameter vector (lower = better). Every seed runs a
// full evolution; the score is the mean over seeds.
func (fe *FitnessEvaluator) Evaluate(ctx context.Context, x []float64) (float64, error) {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	// Seeds already run concurrently
	cfg.Population.Workers = 1

	results := make([]runResult, len(fe.seeds))
	g, ctx := errgroup.WithContext(ctx)
	if fe.parallel > 0 {
		g.SetLimit(fe.parallel)
	}
	for i, seed := range fe.seeds {
		g.Go(func() error {
			r, err := fe.runEvolution(ctx, cfg, seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return math.Inf(1), err
	}

	scores := make([]float64, len(results))
	laps := 0
	best := 0
	for i, r := range results {
		scores[i] = r.score
		laps = max(laps, r.laps)
		if r.score < results[best].score {
			best = i
		}
	}
	avg := stat.Mean(scores, nil)

	fe.mu.Lock()
	if avg < fe.bestFitness {
		fe.bestFitness = avg
		fe.bestHallOfFame = results[best].hallOfFame
	}
	fe.lastLaps = laps
	fe.mu.Unlock()

	return avg, nil
}

// runEvolution evolves one population for the configured number of
// generations and scores it by the mean best fitness of the final ones.
func (fe *FitnessEvaluator) runEvolution(ctx context.Context, cfg *config.Config, seed int64) (runResult, error) {
	rng := rand.New(rand.NewSource(seed))
	t, err := track.FromConfig(cfg.Track, rng)
	if err != nil {
		return runResult{}, err
	}
	pop, err := game.NewPopulation(t, cfg, rng)
	if err != nil {
		return runResult{}, err
	}
	defer pop.Close()

	hof := telemetry.NewHallOfFame(cfg.Telemetry.HallOfFameSize)
	fingerprint := fmt.Sprintf("%016x", t.Fingerprint())
	tail := max(1, int(math.Ceil(float64(fe.generations)*scoreTail)))

	var result runResult
	var bests []float64
	for gen := 0; gen < fe.generations; gen++ {
		if err := ctx.Err(); err != nil {
			return runResult{}, err
		}
		res, err := pop.RunGeneration()
		if err != nil {
			return runResult{}, err
		}
		hof.Consider(telemetry.HallEntry{
			AgentID:    res.Best.ID,
			Generation: res.Generation,
			Fitness:    res.Best.Fitness,
			Laps:       res.Best.Laps,
			Progress:   res.Best.Progress,
			Kind:       string(res.Best.Kind),
			Track:      fingerprint,
			Genome:     res.Best.Genome,
		})
		result.laps = max(result.laps, res.Best.Laps)
		if gen >= fe.generations-tail {
			bests = append(bests, res.Best.Fitness)
		}
	}

	result.score = stat.Mean(bests, nil)
	result.hallOfFame = hof
	return result, nil
}
