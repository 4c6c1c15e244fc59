// Package game runs populations of agents through generations on a track.
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/circuit/components"
	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/neural"
	"github.com/pthm-cable/circuit/systems"
	"github.com/pthm-cable/circuit/telemetry"
	"github.com/pthm-cable/circuit/track"
)

// perfWindow is the number of ticks the step timings are averaged over.
const perfWindow = 1000

var (
	// ErrNoTrack is returned for a nil or empty track.
	ErrNoTrack = errors.New("population needs a track with nodes")
	// ErrNoCheckpoints is returned for a track without checkpoints.
	ErrNoCheckpoints = errors.New("track has no checkpoints")
	// ErrTrackTooLong is returned when a fresh agent would already exceed the fitness ceiling.
	ErrTrackTooLong = errors.New("track too long for fitness ceiling")
	// ErrStillRacing is returned when an operation needs every agent to have ended.
	ErrStillRacing = errors.New("agents are still racing")
)

// Population owns the agents and runs the generational loop:
// reset, simulate until every agent ends, rank, cull, train, repopulate.
//
// Which agents are still racing is held in an ECS world: one entity per
// agent slot, tagged Racing while its agent has not ended.
type Population struct {
	cfg   *config.Config
	track *track.Track
	rig   systems.SensorRig
	rng   *rand.Rand

	agents     []*Agent
	generation int
	tick       int
	alive      int
	nextID     int
	leader     int // slot of the best agent, -1 if none

	// ECS bookkeeping
	world        *ecs.World
	entrantMap   *ecs.Map2[components.Entrant, components.Racing]
	racingMap    *ecs.Map[components.Racing]
	leaderMap    *ecs.Map[components.Leader]
	racingFilter *ecs.Filter2[components.Entrant, components.Racing]
	entities     []ecs.Entity // slot -> entity

	parallel *parallelState
	perf     *telemetry.PerfCollector
}

// NewPopulation creates cfg.Population.Size untrained agents bound to t.
func NewPopulation(t *track.Track, cfg *config.Config, rng *rand.Rand) (*Population, error) {
	if err := validateTrack(t, cfg); err != nil {
		return nil, err
	}

	world := ecs.NewWorld()
	p := &Population{
		cfg:          cfg,
		track:        t,
		rig:          systems.NewSensorRig(cfg),
		rng:          rng,
		leader:       -1,
		world:        world,
		entrantMap:   ecs.NewMap2[components.Entrant, components.Racing](world),
		racingMap:    ecs.NewMap[components.Racing](world),
		leaderMap:    ecs.NewMap[components.Leader](world),
		racingFilter: ecs.NewFilter2[components.Entrant, components.Racing](world),
		parallel:     newParallelState(cfg.Population.Workers),
		perf:         telemetry.NewPerfCollector(perfWindow),
	}

	size := cfg.Population.Size
	p.agents = make([]*Agent, size)
	p.entities = make([]ecs.Entity, size)
	for i := 0; i < size; i++ {
		policy, err := neural.New(neural.Kind(cfg.Policy.Kind), cfg.Policy, rng)
		if err != nil {
			return nil, fmt.Errorf("creating policy: %w", err)
		}
		p.agents[i] = p.newAgent(policy)
		p.entities[i] = p.entrantMap.NewEntity(&components.Entrant{Slot: i}, &components.Racing{})
	}

	p.Reset()
	return p, nil
}

func validateTrack(t *track.Track, cfg *config.Config) error {
	if t == nil || t.Len() == 0 {
		return ErrNoTrack
	}
	total := t.CheckpointCount()
	if total == 0 {
		return ErrNoCheckpoints
	}
	if start := systems.Fitness(0, 1, 0, total, cfg.Progress); start > cfg.Progress.FitnessCeiling {
		return fmt.Errorf("%w: %d checkpoints start at %.0f, ceiling %.0f",
			ErrTrackTooLong, total, start, cfg.Progress.FitnessCeiling)
	}
	return nil
}

func (p *Population) newAgent(policy neural.Policy) *Agent {
	p.nextID++
	a := NewAgent(p.nextID, policy, p.rng.Int63(), p.cfg)
	a.Born = p.generation
	return a
}

// Reset puts every agent back at the start and marks all of them racing.
func (p *Population) Reset() {
	for i, a := range p.agents {
		a.Reset(p.track, p.cfg)
		if e := p.entities[i]; !p.racingMap.Has(e) {
			p.racingMap.Add(e, &components.Racing{})
		}
	}
	p.clearLeader()
	p.tick = 0
	p.alive = len(p.agents)
}

// Step ticks every racing agent once, then removes the ones that ended.
// Returns the number still racing.
func (p *Population) Step() int {
	p.perf.StartTick()
	defer p.perf.EndTick()

	// Phase A: collect racing slots
	p.perf.StartPhase(telemetry.PhaseCollect)
	p.parallel.slots = p.parallel.slots[:0]
	query := p.racingFilter.Query()
	for query.Next() {
		entrant, _ := query.Get()
		p.parallel.slots = append(p.parallel.slots, entrant.Slot)
	}

	n := len(p.parallel.slots)
	if n == 0 {
		p.alive = 0
		return 0
	}

	// Phase B: tick agents
	p.perf.StartPhase(telemetry.PhaseAgents)
	if n < parallelThreshold || p.parallel.numWorkers == 1 {
		p.tickChunk(0, n)
	} else {
		p.tickParallel(n)
	}
	p.tick++

	// Phase C: serial barrier
	p.perf.StartPhase(telemetry.PhaseBarrier)
	p.reconcile()
	return p.alive
}

// reconcile drops the Racing tag from agents that ended this tick and
// force-ends everyone once the generation tick limit is reached.
func (p *Population) reconcile() {
	limit := p.cfg.Population.MaxGenerationTicks
	timedOut := limit > 0 && p.tick >= limit

	for _, slot := range p.parallel.slots {
		a := p.agents[slot]
		if timedOut {
			a.Progress.End(systems.StatusTimedOut)
		}
		if a.Ended() {
			p.racingMap.Remove(p.entities[slot])
			p.alive--
		}
	}
	p.updateLeader()
}

func (p *Population) updateLeader() {
	best := -1
	var bestFitness float64
	for i, a := range p.agents {
		if f := a.Fitness(p.cfg); best < 0 || f < bestFitness {
			best, bestFitness = i, f
		}
	}
	if best == p.leader {
		return
	}
	p.clearLeader()
	p.leaderMap.Add(p.entities[best], &components.Leader{})
	p.leader = best
}

func (p *Population) clearLeader() {
	if p.leader >= 0 && p.leaderMap.Has(p.entities[p.leader]) {
		p.leaderMap.Remove(p.entities[p.leader])
	}
	p.leader = -1
}

// Simulate steps until no agent is racing and returns the ticks taken.
func (p *Population) Simulate() int {
	for p.alive > 0 {
		p.Step()
	}
	return p.tick
}

// ranked pairs an agent with the fitness it was ranked by.
type ranked struct {
	agent   *Agent
	fitness float64
}

// rank orders agents by fitness ascending; ties keep slot order.
func (p *Population) rank() []ranked {
	out := make([]ranked, len(p.agents))
	for i, a := range p.agents {
		out[i] = ranked{agent: a, fitness: a.Fitness(p.cfg)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].fitness < out[j].fitness
	})
	return out
}

// EvolveResult describes what one Evolve call changed.
type EvolveResult struct {
	Culled        []int // IDs of removed agents
	Born          []int // IDs of offspring
	TrainFailures int   // survivors whose Train returned an error
}

// Evolve ranks, culls, trains the survivors and refills the population with
// offspring, then advances the generation counter. Every agent must have ended.
// The new generation is left reset at the start line, ready to view or step.
func (p *Population) Evolve() (EvolveResult, error) {
	var res EvolveResult
	if p.alive > 0 {
		return res, fmt.Errorf("%w: %d left", ErrStillRacing, p.alive)
	}

	// Rank & cull
	order := p.rank()
	keep := p.cfg.Derived.KeepCount
	if keep > len(order) {
		keep = len(order)
	}
	survivors := make([]*Agent, keep)
	for i := range survivors {
		survivors[i] = order[i].agent
	}
	for _, r := range order[keep:] {
		res.Culled = append(res.Culled, r.agent.ID)
	}

	// Train
	for _, a := range survivors {
		if err := a.Learn(); err != nil {
			res.TrainFailures++
		}
	}

	// Repopulate
	p.generation++
	agents := make([]*Agent, 0, len(p.agents))
	agents = append(agents, survivors...)
	for len(agents) < len(p.agents) {
		a := survivors[p.rng.Intn(keep)]
		b := survivors[p.rng.Intn(keep)]
		child, err := a.Policy.CrossWith(b.Policy, p.rng)
		if err != nil {
			return res, fmt.Errorf("breeding %d x %d: %w", a.ID, b.ID, err)
		}
		child.Mutate(p.rng, p.cfg.Policy.MutationProbability)

		offspring := p.newAgent(child)
		offspring.Parents = [2]int{a.ID, b.ID}
		agents = append(agents, offspring)
		res.Born = append(res.Born, offspring.ID)
	}
	p.agents = agents
	p.Reset()

	return res, nil
}

// GenerationResult summarizes a completed generation, taken before culling.
type GenerationResult struct {
	Generation int
	Ticks      int
	Fitness    []float64 // ascending
	Statuses   map[systems.Status]int
	Best       AgentSummary
	Evolve     EvolveResult
}

// AgentSummary is a snapshot of one agent's result.
type AgentSummary struct {
	ID       int
	Born     int
	Fitness  float64
	Laps     int
	Progress int
	Ticks    int
	Status   systems.Status
	Kind     neural.Kind
	Genome   []float64
}

func (p *Population) summarize(r ranked) AgentSummary {
	a := r.agent
	return AgentSummary{
		ID:       a.ID,
		Born:     a.Born,
		Fitness:  r.fitness,
		Laps:     a.Progress.Laps,
		Progress: a.Progress.BestProgress,
		Ticks:    a.Progress.Ticks,
		Status:   a.Progress.Status,
		Kind:     a.Policy.Kind(),
		Genome:   a.Policy.Genome(),
	}
}

// RunGeneration resets, simulates to completion and evolves.
func (p *Population) RunGeneration() (GenerationResult, error) {
	p.Reset()
	ticks := p.Simulate()

	order := p.rank()
	res := GenerationResult{
		Generation: p.generation,
		Ticks:      ticks,
		Fitness:    make([]float64, len(order)),
		Statuses:   make(map[systems.Status]int),
		Best:       p.summarize(order[0]),
	}
	for i, r := range order {
		res.Fitness[i] = r.fitness
		res.Statuses[r.agent.Progress.Status]++
	}

	evolved, err := p.Evolve()
	res.Evolve = evolved
	return res, err
}

// SetTrack swaps the track used from the next Reset on.
func (p *Population) SetTrack(t *track.Track) error {
	if p.alive > 0 && p.tick > 0 {
		return fmt.Errorf("%w: cannot swap track mid-generation", ErrStillRacing)
	}
	if err := validateTrack(t, p.cfg); err != nil {
		return err
	}
	p.track = t
	p.Reset()
	return nil
}

// Seed replaces the first agents with trained policies rebuilt from genomes,
// for example a saved hall of fame. Extra genomes are ignored.
func (p *Population) Seed(kind neural.Kind, genomes [][]float64) (int, error) {
	if p.alive > 0 && p.tick > 0 {
		return 0, fmt.Errorf("%w: cannot seed mid-generation", ErrStillRacing)
	}
	if want := neural.Kind(p.cfg.Policy.Kind); kind != want {
		return 0, fmt.Errorf("%w: seeding %s into a %s population", neural.ErrIncompatiblePolicy, kind, want)
	}
	n := 0
	for _, g := range genomes {
		if n == len(p.agents) {
			break
		}
		policy, err := neural.FromGenome(kind, g, p.cfg.Policy)
		if err != nil {
			return n, fmt.Errorf("seeding agent %d: %w", n, err)
		}
		p.agents[n] = p.newAgent(policy)
		n++
	}
	p.Reset()
	return n, nil
}

// Agents returns the current agents. Callers must not modify them.
func (p *Population) Agents() []*Agent {
	return p.agents
}

// Generation returns the number of completed generations.
func (p *Population) Generation() int {
	return p.generation
}

// Tick returns the tick count of the current generation.
func (p *Population) Tick() int {
	return p.tick
}

// Alive returns the number of agents still racing.
func (p *Population) Alive() int {
	return p.alive
}

func (p *Population) Track() *track.Track {
	return p.track
}

// Perf returns the step timing collector.
func (p *Population) Perf() *telemetry.PerfCollector {
	return p.perf
}

// Close stops the worker pool.
func (p *Population) Close() {
	p.parallel.stopWorkers()
}
