package game

import (
	"fmt"

	"github.com/pthm-cable/circuit/neural"
	"github.com/pthm-cable/circuit/telemetry"
	"github.com/pthm-cable/circuit/track"
)

// Snapshot captures the track and every agent's policy genome.
// The random source is not captured; a restored run continues from a fresh seed.
func (p *Population) Snapshot(runID string, seed int64) *telemetry.Snapshot {
	s := &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		RunID:      runID,
		RNGSeed:    seed,
		Generation: p.generation,
		TileSize:   p.track.TileSize(),
		Moves:      p.track.String(),
		NextID:     p.nextID,
		Agents:     make([]telemetry.AgentState, len(p.agents)),
	}
	for i, a := range p.agents {
		s.Agents[i] = telemetry.AgentState{
			ID:      a.ID,
			Born:    a.Born,
			Parents: a.Parents,
			Kind:    string(a.Policy.Kind()),
			Genome:  a.Policy.Genome(),
		}
	}
	return s
}

// Restore replaces the track and agents with a snapshot's. Restored policies
// are trained. Missing agents are filled with fresh untrained ones and extra
// agents are dropped so the population size stays as configured.
func (p *Population) Restore(s *telemetry.Snapshot) error {
	if p.alive > 0 && p.tick > 0 {
		return fmt.Errorf("%w: cannot restore mid-generation", ErrStillRacing)
	}

	t, err := track.FromString(s.Moves, s.TileSize)
	if err != nil {
		return fmt.Errorf("restoring track: %w", err)
	}
	if err := validateTrack(t, p.cfg); err != nil {
		return err
	}

	want := neural.Kind(p.cfg.Policy.Kind)
	agents := make([]*Agent, 0, len(p.agents))
	for _, st := range s.Agents {
		if len(agents) == len(p.agents) {
			break
		}
		if neural.Kind(st.Kind) != want {
			return fmt.Errorf("%w: agent %d is %s, population is %s",
				neural.ErrIncompatiblePolicy, st.ID, st.Kind, want)
		}
		policy, err := neural.FromGenome(want, st.Genome, p.cfg.Policy)
		if err != nil {
			return fmt.Errorf("restoring agent %d: %w", st.ID, err)
		}
		a := NewAgent(st.ID, policy, p.rng.Int63(), p.cfg)
		a.Born = st.Born
		a.Parents = st.Parents
		agents = append(agents, a)
	}

	p.track = t
	p.generation = s.Generation
	p.nextID = max(p.nextID, s.NextID)
	for len(agents) < len(p.agents) {
		policy, err := neural.New(want, p.cfg.Policy, p.rng)
		if err != nil {
			return err
		}
		agents = append(agents, p.newAgent(policy))
	}
	p.agents = agents
	p.Reset()
	return nil
}
