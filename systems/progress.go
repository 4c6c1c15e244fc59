package systems

import (
	"math"

	"github.com/pthm-cable/circuit/components"
	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/geom"
	"github.com/pthm-cable/circuit/track"
)

// Status is the racing state of an agent. Every status except StatusRacing is terminal.
type Status uint8

const (
	StatusRacing Status = iota
	StatusCrashed
	StatusOffTrack
	StatusStagnated
	StatusRunaway
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusRacing:
		return "racing"
	case StatusCrashed:
		return "crashed"
	case StatusOffTrack:
		return "off_track"
	case StatusStagnated:
		return "stagnated"
	case StatusRunaway:
		return "runaway"
	case StatusTimedOut:
		return "timed_out"
	}
	return "unknown"
}

// Ended reports whether the status is terminal.
func (s Status) Ended() bool {
	return s != StatusRacing
}

// Progress follows an agent around the loop and scores it.
type Progress struct {
	Checkpoint   track.CheckpointLine
	Laps         int
	Ticks        int // ticks survived
	BestProgress int
	BestTick     int
	Status       Status
}

// NewProgress starts at the first checkpoint of t.
func NewProgress(t *track.Track) Progress {
	return Progress{Checkpoint: t.FirstCheckpoint()}
}

// Node returns the index of the node holding the current checkpoint.
func (p *Progress) Node() int {
	return p.Checkpoint.Node
}

// Index returns laps * total + (offset - 1), the scalar distance travelled
// along the loop in checkpoints.
func (p *Progress) Index(total int) int {
	return p.Laps*total + p.Checkpoint.Offset - 1
}

// End forces a terminal status. Already ended agents keep their status.
func (p *Progress) End(s Status) {
	if p.Status == StatusRacing {
		p.Status = s
	}
}

// Update runs one tick of tracking after the vehicle has moved and returns
// the resulting status. Ended agents are left untouched.
func (p *Progress) Update(v *components.Vehicle, t *track.Track, cfg *config.Config) Status {
	if p.Status.Ended() {
		return p.Status
	}

	center := v.Center()
	node := p.Node()
	hood := t.Neighborhood(node)

	if nearestWall(center, t, hood) < v.Footprint()/2 {
		p.Status = StatusCrashed
		return p.Status
	}

	if !onTrack(v.Box, t, node) {
		p.Status = StatusOffTrack
		return p.Status
	}

	total := t.CheckpointCount()
	if next, ok := nearestCheckpoint(center, t, hood); ok &&
		t.CyclicDistance(next.Offset, p.Checkpoint.Offset) < cfg.Progress.MaxCheckpointJump {
		step := next.Offset - p.Checkpoint.Offset
		switch {
		case step < -total/2:
			p.Laps++
		case step > total/2:
			p.Laps--
		}
		p.Checkpoint = next
	}

	if idx := p.Index(total); idx > p.BestProgress {
		p.BestProgress = idx
		p.BestTick = p.Ticks
	}

	p.Ticks++

	if p.Ticks-p.BestTick > cfg.Progress.StagnationTicks {
		p.Status = StatusStagnated
		return p.Status
	}

	if p.Fitness(total, cfg.Progress) > cfg.Progress.FitnessCeiling {
		p.Status = StatusRunaway
	}
	return p.Status
}

// Fitness scores the agent; lower is better.
func (p *Progress) Fitness(total int, cfg config.ProgressConfig) float64 {
	return Fitness(p.Ticks, p.Checkpoint.Offset, p.Laps, total, cfg)
}

// Fitness is -ticks + checkpointWeight * ((total - offset) - lapWeight * laps * total).
// At equal progress, surviving longer scores better.
func Fitness(ticks, offset, laps, total int, cfg config.ProgressConfig) float64 {
	remaining := float64(total - offset)
	lapBonus := cfg.LapWeight * float64(laps) * float64(total)
	return -float64(ticks) + cfg.CheckpointWeight*(remaining-lapBonus)
}

func nearestWall(p geom.Point, t *track.Track, hood [3]int) float64 {
	best := math.Inf(1)
	for _, idx := range hood {
		for _, w := range t.Node(idx).Walls {
			if d := w.DistanceTo(p); d < best {
				best = d
			}
		}
	}
	return best
}

func nearestCheckpoint(p geom.Point, t *track.Track, hood [3]int) (track.CheckpointLine, bool) {
	var best track.CheckpointLine
	bestDist := math.Inf(1)
	found := false
	for _, idx := range hood {
		for _, c := range t.Node(idx).Checkpoints {
			if d := c.DistanceTo(p); d < bestDist {
				best, bestDist, found = c, d, true
			}
		}
	}
	return best, found
}

// onTrack reports whether the box lies within the tiles two steps either side of node.
func onTrack(box geom.BoundingBox, t *track.Track, node int) bool {
	var tiles [5]geom.BoundingBox
	for k := -2; k <= 2; k++ {
		tiles[k+2] = t.Node(node + k).Box
	}
	return box.IsWithinAny(tiles[:]...)
}
