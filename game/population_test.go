package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/neural"
	"github.com/pthm-cable/circuit/systems"
	"github.com/pthm-cable/circuit/track"
)

func testConfig(size, workers int) *config.Config {
	cfg := config.Default()
	cfg.Population.Size = size
	cfg.Population.Workers = workers
	cfg.Population.MaxGenerationTicks = 300
	cfg.Recompute()
	return cfg
}

func newTestPopulation(t *testing.T, cfg *config.Config, seed int64) *Population {
	t.Helper()
	tr, err := track.Predefined(cfg.Track.TileSize)
	require.NoError(t, err)
	p, err := NewPopulation(tr, cfg, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

// racingCount counts entities still carrying the Racing tag.
func racingCount(p *Population) int {
	n := 0
	query := p.racingFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

func TestNewPopulationPreconditions(t *testing.T) {
	cfg := testConfig(10, 1)
	rng := rand.New(rand.NewSource(1))

	_, err := NewPopulation(nil, cfg, rng)
	assert.ErrorIs(t, err, ErrNoTrack)

	tr, err := track.FromString("TTRBBL", 100)
	require.NoError(t, err)
	low := testConfig(10, 1)
	low.Progress.FitnessCeiling = 100
	_, err = NewPopulation(tr, low, rng)
	assert.ErrorIs(t, err, ErrTrackTooLong)
}

func TestNewPopulationStartsRacing(t *testing.T) {
	cfg := testConfig(12, 1)
	p := newTestPopulation(t, cfg, 1)

	assert.Len(t, p.Agents(), 12)
	assert.Equal(t, 12, p.Alive())
	assert.Equal(t, 12, racingCount(p))

	ids := map[int]bool{}
	for _, a := range p.Agents() {
		assert.False(t, ids[a.ID], "duplicate agent id %d", a.ID)
		ids[a.ID] = true
		assert.Equal(t, systems.StatusRacing, a.Progress.Status)
	}

	_, err := p.Evolve()
	assert.ErrorIs(t, err, ErrStillRacing)
}

func TestStepKeepsRacingTagsInSync(t *testing.T) {
	cfg := testConfig(40, 4)
	p := newTestPopulation(t, cfg, 2)

	for p.Alive() > 0 {
		p.Step()
		require.Equal(t, p.Alive(), racingCount(p), "tick %d", p.Tick())

		alive := 0
		for _, a := range p.Agents() {
			if !a.Ended() {
				alive++
			}
		}
		require.Equal(t, alive, p.Alive(), "tick %d", p.Tick())
	}
	assert.LessOrEqual(t, p.Tick(), cfg.Population.MaxGenerationTicks)
}

func TestTickLimitTimesOut(t *testing.T) {
	cfg := testConfig(10, 1)
	cfg.Population.MaxGenerationTicks = 5
	p := newTestPopulation(t, cfg, 3)

	ticks := p.Simulate()
	assert.Equal(t, 5, ticks)
	for _, a := range p.Agents() {
		// Nobody can reach a wall from the start in five ticks
		assert.Equal(t, systems.StatusTimedOut, a.Progress.Status)
	}
}

func TestLeaderIsUnique(t *testing.T) {
	cfg := testConfig(20, 1)
	p := newTestPopulation(t, cfg, 4)

	for i := 0; i < 10; i++ {
		p.Step()
	}

	leaders := 0
	var leader AgentView
	for _, v := range p.Views() {
		if v.Leader {
			leaders++
			leader = v
		}
	}
	require.Equal(t, 1, leaders)
	for _, v := range p.Views() {
		assert.GreaterOrEqual(t, v.Fitness, leader.Fitness)
	}
}

func TestEvolveCullsWorstAndRefills(t *testing.T) {
	cfg := testConfig(20, 1)
	p := newTestPopulation(t, cfg, 5)
	keep := cfg.Derived.KeepCount
	require.Equal(t, 2, keep)

	p.Simulate()
	order := p.rank()
	for i := 1; i < len(order); i++ {
		require.LessOrEqual(t, order[i-1].fitness, order[i].fitness)
	}

	res, err := p.Evolve()
	require.NoError(t, err)

	agents := p.Agents()
	assert.Len(t, agents, cfg.Population.Size)
	assert.Equal(t, 1, p.Generation())

	survivors := map[int]bool{}
	for i := 0; i < keep; i++ {
		assert.Equal(t, order[i].agent.ID, agents[i].ID, "survivor %d", i)
		survivors[agents[i].ID] = true
	}

	var culled []int
	for _, r := range order[keep:] {
		culled = append(culled, r.agent.ID)
	}
	assert.Equal(t, culled, res.Culled)

	assert.Len(t, res.Born, cfg.Population.Size-keep)
	for _, a := range agents[keep:] {
		assert.Contains(t, res.Born, a.ID)
		assert.Equal(t, 1, a.Born)
		assert.True(t, survivors[a.Parents[0]] && survivors[a.Parents[1]], "parents %v", a.Parents)
		assert.True(t, a.Policy.Trained(), "offspring are trained")
	}
}

func TestRunGenerationSummary(t *testing.T) {
	cfg := testConfig(20, 1)
	p := newTestPopulation(t, cfg, 6)

	res, err := p.RunGeneration()
	require.NoError(t, err)

	assert.Equal(t, 0, res.Generation)
	assert.Len(t, res.Fitness, 20)
	assert.Equal(t, res.Fitness[0], res.Best.Fitness)

	total := 0
	for status, n := range res.Statuses {
		assert.True(t, status.Ended(), "status %s", status)
		total += n
	}
	assert.Equal(t, 20, total)
	assert.Len(t, res.Best.Genome, len(p.Agents()[0].Policy.Genome()))

	// Next generation starts clean
	res2, err := p.RunGeneration()
	require.NoError(t, err)
	assert.Equal(t, 1, res2.Generation)
	assert.Equal(t, 2, p.Generation())
}

func TestDeterministicAcrossWorkerCounts(t *testing.T) {
	run := func(workers int) [][]float64 {
		cfg := testConfig(64, workers)
		p := newTestPopulation(t, cfg, 99)
		var out [][]float64
		for i := 0; i < 2; i++ {
			res, err := p.RunGeneration()
			require.NoError(t, err)
			out = append(out, res.Fitness)
		}
		return out
	}

	assert.Equal(t, run(1), run(4))
}

func TestRegressionPopulation(t *testing.T) {
	cfg := testConfig(20, 1)
	cfg.Policy.Kind = string(neural.KindRegression)
	p := newTestPopulation(t, cfg, 7)

	for i := 0; i < 2; i++ {
		_, err := p.RunGeneration()
		require.NoError(t, err)
	}
	for _, a := range p.Agents() {
		assert.Equal(t, neural.KindRegression, a.Policy.Kind())
	}
}

func TestSetTrack(t *testing.T) {
	cfg := testConfig(10, 1)
	p := newTestPopulation(t, cfg, 8)

	small, err := track.FromString("TRRBLL", cfg.Track.TileSize)
	require.NoError(t, err)

	p.Step()
	assert.ErrorIs(t, p.SetTrack(small), ErrStillRacing)

	p.Simulate()
	require.NoError(t, p.SetTrack(small))
	assert.Same(t, small, p.Track())
	for _, a := range p.Agents() {
		assert.Same(t, small, a.Track)
		assert.Equal(t, systems.StatusRacing, a.Progress.Status)
	}
	assert.ErrorIs(t, p.SetTrack(nil), ErrNoTrack)
}

func TestSeedFromGenomes(t *testing.T) {
	cfg := testConfig(10, 1)
	p := newTestPopulation(t, cfg, 9)

	donor := newTestPopulation(t, cfg, 10)
	var genomes [][]float64
	for _, a := range donor.Agents()[:3] {
		genomes = append(genomes, a.Policy.Genome())
	}

	n, err := p.Seed(neural.KindNetwork, genomes)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for i := 0; i < 3; i++ {
		assert.Equal(t, genomes[i], p.Agents()[i].Policy.Genome())
		assert.True(t, p.Agents()[i].Policy.Trained())
	}
	assert.Equal(t, 10, p.Alive())

	_, err = p.Seed(neural.KindRegression, genomes)
	assert.ErrorIs(t, err, neural.ErrIncompatiblePolicy)
}

func TestSnapshotRestore(t *testing.T) {
	cfg := testConfig(10, 1)
	p := newTestPopulation(t, cfg, 11)
	_, err := p.RunGeneration()
	require.NoError(t, err)

	snap := p.Snapshot("run", 11)
	assert.Equal(t, 1, snap.Generation)
	assert.Len(t, snap.Agents, 10)

	q := newTestPopulation(t, cfg, 12)
	require.NoError(t, q.Restore(snap))

	assert.Equal(t, p.Generation(), q.Generation())
	assert.Equal(t, p.Track().String(), q.Track().String())
	for i, a := range q.Agents() {
		assert.Equal(t, p.Agents()[i].ID, a.ID)
		assert.Equal(t, p.Agents()[i].Parents, a.Parents)
		assert.Equal(t, p.Agents()[i].Policy.Genome(), a.Policy.Genome())
	}

	// New agents never reuse restored ids
	_, err = q.RunGeneration()
	require.NoError(t, err)
	seen := map[int]bool{}
	for _, a := range q.Agents() {
		assert.False(t, seen[a.ID], "duplicate id %d", a.ID)
		seen[a.ID] = true
	}
}

func TestViewsAfterRunGeneration(t *testing.T) {
	cfg := testConfig(20, 1)
	p := newTestPopulation(t, cfg, 3)

	_, err := p.RunGeneration()
	require.NoError(t, err)

	views := p.Views()
	require.Len(t, views, 20)
	center, heading := p.Track().StartPose()
	for i, v := range views {
		assert.Equal(t, p.Agents()[i].ID, v.ID)
		assert.InDelta(t, center.X, v.Center.X, 1e-9)
		assert.InDelta(t, center.Y, v.Center.Y, 1e-9)
		assert.Equal(t, heading, v.Heading)
		assert.Equal(t, systems.StatusRacing, v.Status)
		assert.False(t, v.Leader)
	}
	for _, a := range p.Agents() {
		assert.Same(t, p.Track(), a.Track)
	}
	assert.Equal(t, 20, p.Alive())
	assert.Equal(t, 20, racingCount(p))

	// The reset generation steps without a second Reset
	p.Step()
	assert.Equal(t, 1, p.Tick())
}
