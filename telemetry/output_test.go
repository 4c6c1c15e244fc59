package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/circuit/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("", "run")
	if err != nil || om != nil {
		t.Fatalf("empty dir: got %v, %v; want nil, nil", om, err)
	}
	// All methods are no-ops on nil
	if err := om.WriteGeneration(GenerationStats{}); err != nil {
		t.Error(err)
	}
	if err := om.WriteHallOfFame(NewHallOfFame(1)); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestOutputManagerWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, "run-7")
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}

	for gen := 0; gen < 3; gen++ {
		s := GenerationStats{RunID: om.RunID(), Generation: gen}
		s.SetFitness([]float64{float64(100 - gen), 200})
		if err := om.WriteGeneration(s); err != nil {
			t.Fatalf("WriteGeneration: %v", err)
		}
		if err := om.WritePerf(PerfStats{}, gen); err != nil {
			t.Fatalf("WritePerf: %v", err)
		}
	}
	if err := om.WriteBookmark(Bookmark{Type: BookmarkFirstLap, Generation: 2}); err != nil {
		t.Fatalf("WriteBookmark: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "generations.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("generations.csv: got %d lines, want 4\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "run_id,generation,") {
		t.Errorf("header: got %q", lines[0])
	}
	if strings.Count(string(data), "run_id") != 1 {
		t.Error("header written more than once")
	}
	if !strings.HasPrefix(lines[3], "run-7,2,") {
		t.Errorf("last row: got %q", lines[3])
	}

	perf, err := os.ReadFile(filepath.Join(dir, "perf.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(strings.Split(strings.TrimSpace(string(perf)), "\n")); n != 4 {
		t.Errorf("perf.csv: got %d lines, want 4", n)
	}
}

func TestOutputManagerConfigAndHallOfFame(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, "run")
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}
	defer om.Close()

	if err := om.WriteConfig(config.Default()); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("written config does not load: %v", err)
	}

	hof := NewHallOfFame(3)
	hof.Consider(HallEntry{AgentID: 1, Fitness: 10, Kind: "network", Genome: []float64{1}})
	if err := om.WriteHallOfFame(hof); err != nil {
		t.Fatalf("WriteHallOfFame: %v", err)
	}
	loaded, err := LoadHallOfFameFromFile(filepath.Join(dir, "hall_of_fame.json"), 3)
	if err != nil {
		t.Fatalf("LoadHallOfFameFromFile: %v", err)
	}
	if loaded.Size() != 1 {
		t.Errorf("loaded size: got %d, want 1", loaded.Size())
	}

	path, err := om.WriteSnapshot(&Snapshot{Version: SnapshotVersion, Generation: 4})
	if err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(dir, "snapshots") {
		t.Errorf("snapshot path: got %s", path)
	}
}
