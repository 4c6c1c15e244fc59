package track

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/geom"
)

// PredefinedMoves is the fixed 32-tile circuit used when no random track is requested.
const PredefinedMoves = "TRRTTLTRTLLLBLLBRBRBLLTLBBRRRBRT"

// ErrGenerationFailed is returned when no closed loop was found within the attempt budget.
var ErrGenerationFailed = errors.New("no closed loop found")

// Predefined builds the fixed circuit.
func Predefined(tileSize float64) (*Track, error) {
	return FromString(PredefinedMoves, tileSize)
}

// FromString builds a track from single-letter move notation.
func FromString(s string, tileSize float64) (*Track, error) {
	moves, err := ParseMoves(s)
	if err != nil {
		return nil, err
	}
	b := NewBuilder(tileSize)
	if err := b.Moves(moves...); err != nil {
		return nil, err
	}
	return b.Build()
}

// FromConfig builds the track a config describes: explicit moves first,
// then a random loop if requested, otherwise the predefined circuit.
func FromConfig(cfg config.TrackConfig, rng *rand.Rand) (*Track, error) {
	switch {
	case cfg.Moves != "":
		return FromString(cfg.Moves, cfg.TileSize)
	case cfg.Random:
		return Generate(rng, cfg)
	default:
		return Predefined(cfg.TileSize)
	}
}

// Generate builds a random self-avoiding closed loop whose length lies in
// [MinLength, MaxLength]. Each attempt is a random walk that never reverses
// or revisits a cell, abandoned once it can no longer get home in time.
func Generate(rng *rand.Rand, cfg config.TrackConfig) (*Track, error) {
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		moves, ok := walk(rng, cfg.MinLength, cfg.MaxLength)
		if !ok {
			continue
		}
		b := NewBuilder(cfg.TileSize)
		if err := b.Moves(moves...); err != nil {
			continue
		}
		t, err := b.Build()
		if err != nil {
			continue
		}
		return t, nil
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrGenerationFailed, cfg.MaxAttempts)
}

// walk performs one generation attempt.
func walk(rng *rand.Rand, minLen, maxLen int) ([]Direction, bool) {
	origin := geom.Point{}
	visited := map[geom.Point]bool{origin: true}
	moves := make([]Direction, 0, maxLen)
	pos := origin

	var options [4]Direction
	for len(moves) < maxLen {
		remaining := maxLen - len(moves)
		n := 0
		for _, d := range Directions {
			if len(moves) > 0 && moves[len(moves)-1].Opposite() == d {
				continue
			}
			next := pos.Add(d.Offset())
			if next == origin {
				// Closing is only allowed once the loop is long enough
				if len(moves)+1 >= minLen {
					return append(moves, d), true
				}
				continue
			}
			if visited[next] || manhattan(next) > remaining-1 {
				continue
			}
			options[n] = d
			n++
		}
		if n == 0 {
			return nil, false
		}
		d := options[rng.Intn(n)]
		pos = pos.Add(d.Offset())
		visited[pos] = true
		moves = append(moves, d)
	}
	return nil, false
}

func manhattan(p geom.Point) int {
	return int(math.Abs(p.X) + math.Abs(p.Y))
}
