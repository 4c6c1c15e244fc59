package game

import (
	"math/rand"

	"github.com/pthm-cable/circuit/components"
	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/neural"
	"github.com/pthm-cable/circuit/systems"
	"github.com/pthm-cable/circuit/track"
)

// Agent is one driver: a vehicle on a shared track controlled by a policy.
// Agents are reset every generation; their policy persists.
type Agent struct {
	ID       int
	Born     int    // generation the agent was created in
	Parents  [2]int // parent IDs, zero for founders
	Vehicle  components.Vehicle
	Track    *track.Track
	Policy   neural.Policy
	Progress systems.Progress
	Sensors  systems.Snapshot

	rng          *rand.Rand
	instructions []neural.Sample
	maxSamples   int
}

// NewAgent creates an agent with its own random source.
func NewAgent(id int, policy neural.Policy, seed int64, cfg *config.Config) *Agent {
	return &Agent{
		ID:         id,
		Policy:     policy,
		rng:        rand.New(rand.NewSource(seed)),
		maxSamples: cfg.Policy.MaxSamples,
	}
}

// Reset places a fresh vehicle at the track start and clears progress.
func (a *Agent) Reset(t *track.Track, cfg *config.Config) {
	center, heading := t.StartPose()
	a.Track = t
	a.Vehicle = components.NewVehicle(center, heading, cfg.Vehicle)
	a.Progress = systems.NewProgress(t)
	a.Sensors = systems.Snapshot{}
	a.instructions = a.instructions[:0]
}

// Tick runs sensors, policy, kinematics and progress for one step.
// It touches only the agent's own state.
func (a *Agent) Tick(rig systems.SensorRig, cfg *config.Config) systems.Status {
	if a.Progress.Status.Ended() {
		return a.Progress.Status
	}

	a.Sensors = rig.Cast(&a.Vehicle, a.Track, a.Progress.Node())
	in := a.Sensors.Inputs(cfg.Sensors.InputScale)
	resp := a.Policy.Ask(in, a.rng)
	a.remember(neural.Sample{Inputs: in, Response: resp})

	a.Vehicle.Accelerate(resp.Accelerate * cfg.Vehicle.AccelerationStep)
	a.Vehicle.Turn(resp.Turn * cfg.Vehicle.TurnStep)
	a.Vehicle.Tick()

	return a.Progress.Update(&a.Vehicle, a.Track, cfg)
}

// remember appends to the instruction buffer. A full buffer drops its
// older half so the copy cost is amortized.
func (a *Agent) remember(s neural.Sample) {
	if a.maxSamples > 0 && len(a.instructions) >= a.maxSamples {
		n := copy(a.instructions, a.instructions[len(a.instructions)/2:])
		a.instructions = a.instructions[:n]
	}
	a.instructions = append(a.instructions, s)
}

// Instructions returns the recorded (inputs, response) pairs of this run.
func (a *Agent) Instructions() []neural.Sample {
	return a.instructions
}

// Learn feeds the instruction buffer to the policy and trains it.
func (a *Agent) Learn() error {
	a.Policy.Record(a.instructions...)
	a.instructions = a.instructions[:0]
	return a.Policy.Train()
}

// Ended reports whether the agent has stopped racing.
func (a *Agent) Ended() bool {
	return a.Progress.Status.Ended()
}

// Fitness returns the agent's current score; lower is better.
func (a *Agent) Fitness(cfg *config.Config) float64 {
	return a.Progress.Fitness(a.Track.CheckpointCount(), cfg.Progress)
}
