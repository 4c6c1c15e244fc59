package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	generations := flag.Int("generations", 100, "Generations to run (ignored with -continuous)")
	continuous := flag.Bool("continuous", false, "Run generations until interrupted")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, snapshots and config")
	randomTrack := flag.Bool("random-track", false, "Generate a random track instead of the predefined circuit")
	policy := flag.String("policy", "", "Policy kind: network or regression (empty = use config)")
	logStats := flag.Bool("log-stats", false, "Output generation stats via slog")
	hallOfFame := flag.String("hall-of-fame", "", "Seed the first agents from a saved hall_of_fame.json")
	resume := flag.String("resume", "", "Resume from a snapshot file")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *randomTrack {
		cfg.Track.Random = true
	}
	if *policy != "" {
		cfg.Policy.Kind = *policy
		if err := cfg.Validate(); err != nil {
			slog.Error("invalid policy", "error", err)
			os.Exit(1)
		}
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	sim, err := game.NewSimulator(cfg, game.SimulatorOptions{
		Seed:      rngSeed,
		OutputDir: *outputDir,
		LogStats:  *logStats,
	})
	if err != nil {
		slog.Error("failed to start simulator", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := sim.Close(); err != nil {
			slog.Error("failed to close simulator", "error", err)
		}
	}()

	if *resume != "" {
		if err := sim.Resume(*resume); err != nil {
			slog.Error("failed to resume", "path", *resume, "error", err)
			return
		}
	}
	if *hallOfFame != "" {
		if _, err := sim.SeedFromHallOfFame(*hallOfFame); err != nil {
			slog.Error("failed to seed from hall of fame", "path", *hallOfFame, "error", err)
			return
		}
	}

	// First interrupt stops at the next generation boundary, a second one kills.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	go func() {
		<-interrupts
		slog.Info("stop requested, finishing current generation")
		sim.RequestStop()
		signal.Stop(interrupts)
	}()

	slog.Info("starting simulation",
		"seed", rngSeed,
		"generations", *generations,
		"continuous", *continuous,
	)

	ctx := context.Background()
	start := time.Now()
	var done int
	if *continuous {
		done, err = sim.RunContinuous(ctx)
	} else {
		done, err = sim.RunGenerations(ctx, *generations)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("simulation failed", "error", err)
	}

	best, _ := sim.HallOfFame().Best()
	slog.Info("simulation finished",
		"generations", done,
		"elapsed", time.Since(start).String(),
		"stopped", sim.Stopped(),
		"best_fitness", best.Fitness,
		"best_laps", best.Laps,
	)
}
