package track

import (
	"sort"

	"github.com/pthm-cable/circuit/geom"
)

// CheckpointLine is a progress marker spanning a tile.
// Offsets are global, ascending in travel order and start at 1.
type CheckpointLine struct {
	geom.Segment
	Offset int
	Node   int
}

// WallLine is a solid tile edge.
type WallLine struct {
	geom.Segment
	Side Direction
	Node int
}

// Node is one tile of a track. Previous and Next are indices into the
// track's node array and form a cycle.
type Node struct {
	Index    int
	Position geom.Point // grid cell
	Entrance Direction
	Exit     Direction

	Checkpoints []CheckpointLine
	Walls       []WallLine
	Openings    []WallLine

	Previous int
	Next     int

	Box geom.BoundingBox
}

// Straight reports whether the node is entered and left on opposite sides.
func (n *Node) Straight() bool {
	return n.Entrance.Opposite() == n.Exit
}

// Center returns the world-space center of the tile.
func (n *Node) Center() geom.Point {
	return n.Box.Center()
}

// newNode lays out walls, openings and checkpoints for a tile.
// Checkpoint offsets are left at zero for the linking pass.
func newNode(index int, cell geom.Point, entrance, exit Direction, tileSize float64) Node {
	center := cell.Scale(tileSize)
	n := Node{
		Index:    index,
		Position: cell,
		Entrance: entrance,
		Exit:     exit,
		Box:      geom.BoxAround(center, tileSize, tileSize),
	}

	toWorld := func(s geom.Segment) geom.Segment {
		return s.Scale(tileSize).Translate(center)
	}

	for _, d := range Directions {
		line := WallLine{Segment: toWorld(d.edge()), Side: d, Node: index}
		if d == entrance || d == exit {
			n.Openings = append(n.Openings, line)
		} else {
			n.Walls = append(n.Walls, line)
		}
	}

	var local []geom.Segment
	if n.Straight() {
		local = straightCheckpoints(exit)
	} else {
		local = cornerCheckpoints(entrance, exit)
	}

	// Order by distance from the entrance opening
	mouth := entrance.Offset().Scale(0.5)
	sort.SliceStable(local, func(i, j int) bool {
		return local[i].Center.DistanceTo(mouth) < local[j].Center.DistanceTo(mouth)
	})

	n.Checkpoints = make([]CheckpointLine, len(local))
	for i, s := range local {
		n.Checkpoints[i] = CheckpointLine{Segment: toWorld(s), Node: index}
	}
	return n
}

// straightCheckpoints returns three lines across the tile, perpendicular to
// travel, at a quarter tile before the center, the center and a quarter after.
func straightCheckpoints(exit Direction) []geom.Segment {
	along := exit.Offset()
	across := geom.Point{X: -along.Y, Y: along.X}.Scale(0.5)
	lines := make([]geom.Segment, 0, 3)
	for _, t := range [3]float64{-0.25, 0, 0.25} {
		c := along.Scale(t)
		lines = append(lines, geom.NewSegment(c.Sub(across), c.Add(across)))
	}
	return lines
}

// cornerCheckpoints returns three lines fanning out from the inner corner
// (between the two openings) to the outer walls: the middle of the wall
// opposite the exit, the outer corner, then the middle of the wall opposite
// the entrance.
func cornerCheckpoints(entrance, exit Direction) []geom.Segment {
	inner := entrance.Offset().Add(exit.Offset()).Scale(0.5)
	outer := inner.Scale(-1)
	return []geom.Segment{
		geom.NewSegment(inner, outer.Add(entrance.Offset().Scale(0.5))),
		geom.NewSegment(inner, outer),
		geom.NewSegment(inner, outer.Add(exit.Offset().Scale(0.5))),
	}
}
