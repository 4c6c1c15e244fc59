package track

import (
	"github.com/pthm-cable/circuit/geom"
)

// Track is an immutable closed loop of tiles shared read-only by all agents.
type Track struct {
	nodes       []Node
	checkpoints []CheckpointLine // index = offset - 1
	walls       []WallLine
	moves       []Direction
	tileSize    float64
	fingerprint uint64
}

// Len returns the number of nodes.
func (t *Track) Len() int {
	return len(t.nodes)
}

// Node returns node i, wrapping around the loop.
func (t *Track) Node(i int) *Node {
	return &t.nodes[t.Wrap(i)]
}

// Nodes returns the node array. Callers must not modify it.
func (t *Track) Nodes() []Node {
	return t.nodes
}

// Wrap maps any integer onto a node index.
func (t *Track) Wrap(i int) int {
	n := len(t.nodes)
	return ((i % n) + n) % n
}

// Neighborhood returns the previous, current and next node indices of i.
func (t *Track) Neighborhood(i int) [3]int {
	n := t.Node(i)
	return [3]int{n.Previous, n.Index, n.Next}
}

// CheckpointCount returns the total number of checkpoints on the loop.
func (t *Track) CheckpointCount() int {
	return len(t.checkpoints)
}

// FirstCheckpoint returns the checkpoint with offset 1.
func (t *Track) FirstCheckpoint() CheckpointLine {
	return t.checkpoints[0]
}

// Checkpoint returns the checkpoint with the given offset, wrapping around the loop.
func (t *Track) Checkpoint(offset int) CheckpointLine {
	n := len(t.checkpoints)
	return t.checkpoints[(((offset-1)%n)+n)%n]
}

// Checkpoints returns every checkpoint ordered by offset. Callers must not modify it.
func (t *Track) Checkpoints() []CheckpointLine {
	return t.checkpoints
}

// Walls returns every wall. Callers must not modify it.
func (t *Track) Walls() []WallLine {
	return t.walls
}

// Moves returns a copy of the move sequence the track was built from.
func (t *Track) Moves() []Direction {
	return append([]Direction(nil), t.moves...)
}

// String returns the move notation of the track.
func (t *Track) String() string {
	return FormatMoves(t.moves)
}

// Fingerprint is a hash of the move sequence, stable across runs.
func (t *Track) Fingerprint() uint64 {
	return t.fingerprint
}

func (t *Track) TileSize() float64 {
	return t.tileSize
}

// StartPose returns the spawn point (center of node 0) and the heading that
// faces node 0's exit.
func (t *Track) StartPose() (geom.Point, float64) {
	n := &t.nodes[0]
	return n.Center(), n.Exit.Heading()
}

// CyclicDistance returns the shortest distance between two checkpoint
// offsets around the loop.
func (t *Track) CyclicDistance(a, b int) int {
	n := len(t.checkpoints)
	d := ((a-b)%n + n) % n
	if n-d < d {
		return n - d
	}
	return d
}
