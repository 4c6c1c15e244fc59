package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseCollect)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseAgents)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}
	if _, ok := stats.PhaseAvg[PhaseCollect]; !ok {
		t.Error("expected collect phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseAgents]; !ok {
		t.Error("expected agents phase to be tracked")
	}
	if pc.TotalTicks() != 5 {
		t.Errorf("total ticks: got %d, want 5", pc.TotalTicks())
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseBarrier)
		time.Sleep(10 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration after window filled")
	}
	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
	if pc.TotalTicks() != 10 {
		t.Errorf("total ticks: got %d, want 10", pc.TotalTicks())
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseCollect)
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase(PhaseAgents)
		time.Sleep(500 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.PhasePct[PhaseAgents] <= stats.PhasePct[PhaseCollect] {
		t.Errorf("expected agents phase (%v%%) > collect phase (%v%%)",
			stats.PhasePct[PhaseAgents], stats.PhasePct[PhaseCollect])
	}

	row := stats.ToCSV("run", 3)
	if row.Generation != 3 || row.RunID != "run" {
		t.Errorf("csv row identity: %+v", row)
	}
	if row.AgentsPct != stats.PhasePct[PhaseAgents] {
		t.Errorf("csv agents pct: got %v, want %v", row.AgentsPct, stats.PhasePct[PhaseAgents])
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	if stats.AvgTickDuration != 0 {
		t.Error("expected zero avg tick duration for empty collector")
	}
	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}
	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}
