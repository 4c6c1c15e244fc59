package game

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/circuit/systems"
)

func newTestSimulator(t *testing.T, dir string) *Simulator {
	t.Helper()
	cfg := testConfig(16, 2)
	cfg.Telemetry.SnapshotEvery = 2
	sim, err := NewSimulator(cfg, SimulatorOptions{Seed: 42, OutputDir: dir})
	require.NoError(t, err)
	return sim
}

func TestSimulatorWritesOutput(t *testing.T) {
	dir := t.TempDir()
	sim := newTestSimulator(t, dir)
	assert.NotEmpty(t, sim.RunID())

	n, err := sim.RunGenerations(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, sim.Generation())
	assert.Positive(t, sim.HallOfFame().Size())

	require.NoError(t, sim.Close())

	for _, name := range []string{"generations.csv", "perf.csv", "bookmarks.csv", "config.yaml", "hall_of_fame.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	snaps, err := filepath.Glob(filepath.Join(dir, "snapshots", "snapshot_*.json"))
	require.NoError(t, err)
	assert.NotEmpty(t, snaps)
}

func TestSimulatorStopIsSticky(t *testing.T) {
	sim := newTestSimulator(t, "")
	defer sim.Close()

	sim.RequestStop()
	assert.True(t, sim.Stopped())

	n, err := sim.RunGenerations(context.Background(), 5)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = sim.RunContinuous(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSimulatorContextCancel(t *testing.T) {
	sim := newTestSimulator(t, "")
	defer sim.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := sim.RunGenerations(ctx, 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func TestSimulatorContinuousToggle(t *testing.T) {
	sim := newTestSimulator(t, "")
	defer sim.Close()

	assert.False(t, sim.Continuous())
	assert.True(t, sim.ToggleContinuous())
	assert.False(t, sim.ToggleContinuous())

	done := make(chan int, 1)
	go func() {
		n, _ := sim.RunContinuous(context.Background())
		done <- n
	}()

	require.Eventually(t, func() bool { return sim.Generation() >= 1 }, 30*time.Second, 10*time.Millisecond)
	assert.True(t, sim.Continuous())
	sim.ToggleContinuous()

	select {
	case n := <-done:
		assert.GreaterOrEqual(t, n, 1)
	case <-time.After(30 * time.Second):
		t.Fatal("continuous run did not stop")
	}
	assert.False(t, sim.Stopped(), "toggling off is not a stop")
}

func TestSimulatorNewTrack(t *testing.T) {
	sim := newTestSimulator(t, "")
	defer sim.Close()

	before := sim.Track()
	require.NoError(t, sim.NewTrack())
	after := sim.Track()

	assert.NotSame(t, before, after)
	assert.GreaterOrEqual(t, after.Len(), sim.cfg.Track.MinLength)
	assert.LessOrEqual(t, after.Len(), sim.cfg.Track.MaxLength)

	_, err := sim.RunGeneration()
	require.NoError(t, err)
}

func TestSimulatorResumeAndSeed(t *testing.T) {
	dir := t.TempDir()
	sim := newTestSimulator(t, dir)
	_, err := sim.RunGenerations(context.Background(), 2)
	require.NoError(t, err)
	require.NoError(t, sim.Close())

	snaps, err := filepath.Glob(filepath.Join(dir, "snapshots", "snapshot_2*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, snaps)

	next := newTestSimulator(t, "")
	defer next.Close()

	require.NoError(t, next.Resume(snaps[0]))
	assert.Equal(t, 2, next.Generation())

	n, err := next.SeedFromHallOfFame(filepath.Join(dir, "hall_of_fame.json"))
	require.NoError(t, err)
	assert.Positive(t, n)

	_, err = next.RunGeneration()
	require.NoError(t, err)
	assert.Equal(t, 3, next.Generation())
}

func TestSimulatorViewsBetweenGenerations(t *testing.T) {
	sim := newTestSimulator(t, "")
	defer sim.Close()

	_, err := sim.RunGeneration()
	require.NoError(t, err)

	views := sim.Views()
	require.Len(t, views, 16)
	for _, v := range views {
		assert.Equal(t, systems.StatusRacing, v.Status)
		assert.Positive(t, v.Size)
	}
}
