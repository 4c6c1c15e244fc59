// Package track builds closed-loop tile tracks with wall and checkpoint geometry.
package track

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pthm-cable/circuit/geom"
)

// Direction is a cardinal move on the track grid.
type Direction uint8

const (
	Top Direction = iota
	Bottom
	Left
	Right
)

// Directions lists every direction in a fixed order.
var Directions = [4]Direction{Top, Bottom, Left, Right}

// ErrUnknownDirection is returned when move notation contains an unknown letter.
var ErrUnknownDirection = errors.New("unknown direction")

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Top:
		return Bottom
	case Bottom:
		return Top
	case Left:
		return Right
	default:
		return Left
	}
}

// Offset returns the unit grid step for the direction. Top is +Y.
func (d Direction) Offset() geom.Point {
	switch d {
	case Top:
		return geom.Point{X: 0, Y: 1}
	case Bottom:
		return geom.Point{X: 0, Y: -1}
	case Left:
		return geom.Point{X: -1, Y: 0}
	default:
		return geom.Point{X: 1, Y: 0}
	}
}

// Heading returns the rotation in degrees that turns a Top-facing vector
// to face d.
func (d Direction) Heading() float64 {
	switch d {
	case Top:
		return 0
	case Left:
		return 90
	case Bottom:
		return 180
	default:
		return -90
	}
}

// Rune returns the single-letter notation for d.
func (d Direction) Rune() rune {
	switch d {
	case Top:
		return 'T'
	case Bottom:
		return 'B'
	case Left:
		return 'L'
	default:
		return 'R'
	}
}

func (d Direction) String() string {
	switch d {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("direction(%d)", d)
}

// ParseDirection parses a single-letter direction (T, B, L, R, case-insensitive).
func ParseDirection(r rune) (Direction, error) {
	switch r {
	case 'T', 't':
		return Top, nil
	case 'B', 'b':
		return Bottom, nil
	case 'L', 'l':
		return Left, nil
	case 'R', 'r':
		return Right, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, r)
}

// ParseMoves parses move notation such as "TRRB". Whitespace is ignored.
func ParseMoves(s string) ([]Direction, error) {
	moves := make([]Direction, 0, len(s))
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == ',' {
			continue
		}
		d, err := ParseDirection(r)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i, err)
		}
		moves = append(moves, d)
	}
	return moves, nil
}

// FormatMoves renders moves in single-letter notation.
func FormatMoves(moves []Direction) string {
	var sb strings.Builder
	sb.Grow(len(moves))
	for _, d := range moves {
		sb.WriteRune(d.Rune())
	}
	return sb.String()
}

// edge returns the unit-square edge on side d, centered on the origin.
func (d Direction) edge() geom.Segment {
	switch d {
	case Top:
		return geom.Seg(-0.5, 0.5, 0.5, 0.5)
	case Bottom:
		return geom.Seg(-0.5, -0.5, 0.5, -0.5)
	case Left:
		return geom.Seg(-0.5, -0.5, -0.5, 0.5)
	default:
		return geom.Seg(0.5, -0.5, 0.5, 0.5)
	}
}
