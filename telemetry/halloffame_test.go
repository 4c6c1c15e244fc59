package telemetry

import (
	"testing"
)

func TestHallOfFameKeepsBestSorted(t *testing.T) {
	hof := NewHallOfFame(3)

	for i, f := range []float64{500, 100, 300, 50, 900} {
		hof.Consider(HallEntry{AgentID: i + 1, Fitness: f, Kind: "network"})
	}

	entries := hof.Entries()
	if len(entries) != 3 {
		t.Fatalf("size: got %d, want 3", len(entries))
	}
	want := []float64{50, 100, 300}
	for i, e := range entries {
		if e.Fitness != want[i] {
			t.Errorf("entry %d: got fitness %f, want %f", i, e.Fitness, want[i])
		}
	}

	best, ok := hof.Best()
	if !ok || best.AgentID != 4 {
		t.Errorf("best: got %+v", best)
	}
}

func TestHallOfFameRejectsWorseWhenFull(t *testing.T) {
	hof := NewHallOfFame(2)
	hof.Consider(HallEntry{AgentID: 1, Fitness: 1})
	hof.Consider(HallEntry{AgentID: 2, Fitness: 2})

	if hof.Consider(HallEntry{AgentID: 3, Fitness: 3}) {
		t.Error("worse entry should not enter a full hall")
	}
	if !hof.Consider(HallEntry{AgentID: 4, Fitness: 0}) {
		t.Error("better entry should enter a full hall")
	}
}

func TestHallOfFameOneEntryPerAgent(t *testing.T) {
	hof := NewHallOfFame(5)

	hof.Consider(HallEntry{AgentID: 9, Fitness: 100, Genome: []float64{1}})
	if hof.Consider(HallEntry{AgentID: 9, Fitness: 150}) {
		t.Error("worse score for the same agent should be ignored")
	}
	if !hof.Consider(HallEntry{AgentID: 9, Fitness: 20, Genome: []float64{2}}) {
		t.Error("better score for the same agent should replace it")
	}

	if hof.Size() != 1 {
		t.Fatalf("size: got %d, want 1", hof.Size())
	}
	if best, _ := hof.Best(); best.Fitness != 20 || best.Genome[0] != 2 {
		t.Errorf("best: got %+v", best)
	}
}

func TestHallOfFameCopiesGenomes(t *testing.T) {
	hof := NewHallOfFame(2)
	g := []float64{1, 2, 3}
	hof.Consider(HallEntry{AgentID: 1, Fitness: 5, Kind: "regression", Genome: g})
	g[0] = 99

	got := hof.Genomes("regression")
	if len(got) != 1 || got[0][0] != 1 {
		t.Errorf("genomes: got %v", got)
	}
	if len(hof.Genomes("network")) != 0 {
		t.Error("genomes should filter by kind")
	}
}
