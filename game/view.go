package game

import (
	"github.com/pthm-cable/circuit/geom"
	"github.com/pthm-cable/circuit/systems"
)

// AgentView is a read-only copy of what a renderer needs for one agent.
type AgentView struct {
	ID      int
	Center  geom.Point
	Heading float64
	Size    float64
	Status  systems.Status
	Leader  bool
	Fitness float64
	Sensors systems.Snapshot
}

// Views returns a copy of every agent's drawable state, in slot order.
func (p *Population) Views() []AgentView {
	views := make([]AgentView, len(p.agents))
	for i, a := range p.agents {
		views[i] = AgentView{
			ID:      a.ID,
			Center:  a.Vehicle.Center(),
			Heading: a.Vehicle.Heading(),
			Size:    a.Vehicle.Footprint(),
			Status:  a.Progress.Status,
			Leader:  p.leaderMap.Has(p.entities[i]),
			Fitness: a.Fitness(p.cfg),
			Sensors: a.Sensors,
		}
	}
	return views
}
