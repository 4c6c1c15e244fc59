package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/neural"
	"github.com/pthm-cable/circuit/systems"
	"github.com/pthm-cable/circuit/telemetry"
	"github.com/pthm-cable/circuit/track"
)

// SimulatorOptions configures a Simulator beyond the simulation parameters.
type SimulatorOptions struct {
	Seed      int64
	RunID     string // generated when empty
	OutputDir string // no file output when empty
	LogStats  bool
}

// Simulator is the command surface over a Population: it runs generations
// on demand or continuously and records telemetry after each one.
//
// Run calls are serialized. RequestStop and ToggleContinuous may be called
// from any goroutine; both take effect at the next generation boundary.
type Simulator struct {
	cfg   *config.Config
	rng   *rand.Rand
	seed  int64
	runID string

	mu  sync.Mutex
	pop *Population

	output    *telemetry.OutputManager
	hof       *telemetry.HallOfFame
	bookmarks *telemetry.BookmarkDetector
	logStats  bool

	continuous atomic.Bool
	stop       atomic.Bool
}

// NewSimulator builds the track and population and prepares output.
func NewSimulator(cfg *config.Config, opts SimulatorOptions) (*Simulator, error) {
	rng := rand.New(rand.NewSource(opts.Seed))

	t, err := track.FromConfig(cfg.Track, rng)
	if err != nil {
		return nil, fmt.Errorf("building track: %w", err)
	}
	pop, err := NewPopulation(t, cfg, rng)
	if err != nil {
		return nil, err
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	output, err := telemetry.NewOutputManager(opts.OutputDir, runID)
	if err != nil {
		pop.Close()
		return nil, err
	}
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	s := &Simulator{
		cfg:       cfg,
		rng:       rng,
		seed:      opts.Seed,
		runID:     runID,
		pop:       pop,
		output:    output,
		hof:       telemetry.NewHallOfFame(cfg.Telemetry.HallOfFameSize),
		bookmarks: telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistory),
		logStats:  opts.LogStats,
	}

	slog.Info("simulator ready",
		"run_id", runID,
		"seed", opts.Seed,
		"track", t.String(),
		"nodes", t.Len(),
		"checkpoints", t.CheckpointCount(),
		"policy", cfg.Policy.Kind,
		"population", cfg.Population.Size,
	)
	return s, nil
}

// NewTrack replaces the track with a freshly generated random one.
func (s *Simulator) NewTrack() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := track.Generate(s.rng, s.cfg.Track)
	if err != nil {
		return err
	}
	if err := s.pop.SetTrack(t); err != nil {
		return err
	}
	slog.Info("new track", "track", t.String(), "nodes", t.Len(), "fingerprint", fmt.Sprintf("%016x", t.Fingerprint()))
	return nil
}

// RunGeneration runs one full generation and records it.
func (s *Simulator) RunGeneration() (GenerationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.pop.RunGeneration()
	if err != nil {
		return res, err
	}
	s.record(res)
	return res, nil
}

// RunGenerations runs up to n generations, stopping early on RequestStop or
// context cancellation. Returns the number completed.
func (s *Simulator) RunGenerations(ctx context.Context, n int) (int, error) {
	done := 0
	for done < n {
		if s.stop.Load() {
			return done, nil
		}
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.RunGeneration(); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

// ToggleContinuous flips continuous mode and returns the new state.
// Turning it off ends RunContinuous after the current generation.
func (s *Simulator) ToggleContinuous() bool {
	for {
		old := s.continuous.Load()
		if s.continuous.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Continuous reports whether continuous mode is on.
func (s *Simulator) Continuous() bool {
	return s.continuous.Load()
}

// RunContinuous turns continuous mode on and runs generations until it is
// toggled off, a stop is requested or ctx is cancelled.
func (s *Simulator) RunContinuous(ctx context.Context) (int, error) {
	s.continuous.Store(true)
	done := 0
	for s.continuous.Load() && !s.stop.Load() {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.RunGeneration(); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

// RequestStop asks any running loop to return at the next generation
// boundary. The stop is permanent for this simulator.
func (s *Simulator) RequestStop() {
	s.stop.Store(true)
	s.continuous.Store(false)
}

// Stopped reports whether a stop was requested.
func (s *Simulator) Stopped() bool {
	return s.stop.Load()
}

// Views returns the drawable state of every agent.
func (s *Simulator) Views() []AgentView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pop.Views()
}

// Track returns the current track.
func (s *Simulator) Track() *track.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pop.Track()
}

// Generation returns the number of completed generations.
func (s *Simulator) Generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pop.Generation()
}

// HallOfFame returns the best genomes recorded so far.
func (s *Simulator) HallOfFame() *telemetry.HallOfFame {
	return s.hof
}

// RunID returns the identifier stamped on this run's output.
func (s *Simulator) RunID() string {
	return s.runID
}

// SeedFromHallOfFame loads a saved hall of fame and gives its genomes to the
// first agents. Returns how many agents were seeded.
func (s *Simulator) SeedFromHallOfFame(path string) (int, error) {
	loaded, err := telemetry.LoadHallOfFameFromFile(path, s.cfg.Telemetry.HallOfFameSize)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.pop.Seed(neural.Kind(s.cfg.Policy.Kind), loaded.Genomes(s.cfg.Policy.Kind))
	if err != nil {
		return n, err
	}
	slog.Info("seeded from hall of fame", "path", path, "agents", n)
	return n, nil
}

// Resume restores the track and agents from a snapshot file.
func (s *Simulator) Resume(path string) error {
	snap, err := telemetry.LoadSnapshot(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pop.Restore(snap); err != nil {
		return err
	}
	slog.Info("resumed from snapshot", "path", path, "generation", snap.Generation, "from_run", snap.RunID)
	return nil
}

// Close writes the hall of fame and a final snapshot, then releases resources.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pop.Close()
	if err := s.output.WriteHallOfFame(s.hof); err != nil {
		slog.Error("failed to write hall of fame", "error", err)
	}
	s.saveSnapshot(nil)
	return s.output.Close()
}

// record writes telemetry for a finished generation. Failures are logged
// and never stop the run.
func (s *Simulator) record(res GenerationResult) {
	t := s.pop.Track()
	fingerprint := fmt.Sprintf("%016x", t.Fingerprint())

	stats := telemetry.GenerationStats{
		RunID:         s.runID,
		Generation:    res.Generation,
		Track:         fingerprint,
		Ticks:         res.Ticks,
		BestID:        res.Best.ID,
		BestLaps:      res.Best.Laps,
		BestProgress:  res.Best.Progress,
		BestTicks:     res.Best.Ticks,
		Culled:        len(res.Evolve.Culled),
		TrainFailures: res.Evolve.TrainFailures,
	}
	stats.SetFitness(res.Fitness)
	stats.SetStatuses(statusCounts(res.Statuses))

	s.hof.Consider(telemetry.HallEntry{
		AgentID:    res.Best.ID,
		Generation: res.Generation,
		Fitness:    res.Best.Fitness,
		Laps:       res.Best.Laps,
		Progress:   res.Best.Progress,
		Kind:       string(res.Best.Kind),
		Track:      fingerprint,
		Genome:     res.Best.Genome,
	})

	perf := s.pop.Perf().Stats()
	if s.logStats && s.cfg.Telemetry.LogEvery > 0 && res.Generation%s.cfg.Telemetry.LogEvery == 0 {
		slog.Info("generation", "stats", stats, "perf", perf)
	}

	if err := s.output.WriteGeneration(stats); err != nil {
		slog.Error("failed to write generation", "error", err)
	}
	if err := s.output.WritePerf(perf, res.Generation); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range s.bookmarks.Check(stats) {
		if s.logStats {
			bm.LogBookmark()
		}
		if err := s.output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		s.saveSnapshot(&bm)
	}

	if every := s.cfg.Telemetry.SnapshotEvery; every > 0 && (res.Generation+1)%every == 0 {
		s.saveSnapshot(nil)
	}
}

// saveSnapshot writes the population state if output is enabled.
func (s *Simulator) saveSnapshot(bookmark *telemetry.Bookmark) {
	if s.output == nil {
		return
	}
	snap := s.pop.Snapshot(s.runID, s.seed)
	snap.Bookmark = bookmark

	path, err := s.output.WriteSnapshot(snap)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "generation", snap.Generation)
}

func statusCounts(m map[systems.Status]int) map[string]int {
	out := make(map[string]int, len(m))
	for status, n := range m {
		out[status.String()] = n
	}
	return out
}
