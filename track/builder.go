package track

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/pthm-cable/circuit/geom"
)

var (
	// ErrReversal is returned when a tile would be entered and left on the same side.
	ErrReversal = errors.New("entrance equals exit")
	// ErrEmptyTrack is returned when building without any moves.
	ErrEmptyTrack = errors.New("track has no moves")
	// ErrOpenLoop is returned when the moves do not return to the starting cell.
	ErrOpenLoop = errors.New("moves do not return to the start")
	// ErrOverlap is returned when the moves visit a grid cell twice.
	ErrOverlap = errors.New("moves revisit a cell")
)

// Builder accumulates cardinal moves and builds a closed-loop Track.
type Builder struct {
	tileSize float64
	moves    []Direction
}

// NewBuilder creates a builder for tiles of the given world size.
func NewBuilder(tileSize float64) *Builder {
	return &Builder{tileSize: tileSize}
}

// Move appends one tile, left through side d. A move that reverses the
// previous one is rejected immediately.
func (b *Builder) Move(d Direction) error {
	if n := len(b.moves); n > 0 && b.moves[n-1].Opposite() == d {
		return fmt.Errorf("node %d: %w (%s)", n, ErrReversal, d)
	}
	b.moves = append(b.moves, d)
	return nil
}

// Moves appends several moves, stopping at the first error.
func (b *Builder) Moves(ds ...Direction) error {
	for _, d := range ds {
		if err := b.Move(d); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of moves so far.
func (b *Builder) Len() int {
	return len(b.moves)
}

// Build validates the loop, lays out every node and links them.
func (b *Builder) Build() (*Track, error) {
	n := len(b.moves)
	if n == 0 {
		return nil, ErrEmptyTrack
	}

	// Node 0 is entered through the last move
	if b.moves[n-1].Opposite() == b.moves[0] {
		return nil, fmt.Errorf("node 0: %w (%s)", ErrReversal, b.moves[0])
	}

	cells := make([]geom.Point, n)
	seen := make(map[geom.Point]int, n)
	var pos geom.Point
	for i, d := range b.moves {
		if prev, ok := seen[pos]; ok {
			return nil, fmt.Errorf("node %d: %w (cell %v already used by node %d)", i, ErrOverlap, pos, prev)
		}
		seen[pos] = i
		cells[i] = pos
		pos = pos.Add(d.Offset())
	}
	if pos != (geom.Point{}) {
		return nil, fmt.Errorf("%w: ends at %v", ErrOpenLoop, pos)
	}

	t := &Track{
		nodes:    make([]Node, n),
		moves:    append([]Direction(nil), b.moves...),
		tileSize: b.tileSize,
	}
	for i, exit := range b.moves {
		entrance := b.moves[(i-1+n)%n].Opposite()
		t.nodes[i] = newNode(i, cells[i], entrance, exit, b.tileSize)
	}

	t.link()
	t.fingerprint = xxhash.Sum64String(FormatMoves(t.moves))
	return t, nil
}

// link sets Previous/Next and assigns global checkpoint offsets in travel order.
func (t *Track) link() {
	n := len(t.nodes)
	offset := 1
	for i := range t.nodes {
		node := &t.nodes[i]
		node.Previous = (i - 1 + n) % n
		node.Next = (i + 1) % n
		for j := range node.Checkpoints {
			node.Checkpoints[j].Offset = offset
			offset++
		}
		t.checkpoints = append(t.checkpoints, node.Checkpoints...)
		t.walls = append(t.walls, node.Walls...)
	}
}
