package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// HallEntry is a policy genome that scored well, with how it scored.
type HallEntry struct {
	AgentID    int       `json:"agent_id"`
	Generation int       `json:"generation"`
	Fitness    float64   `json:"fitness"`
	Laps       int       `json:"laps"`
	Progress   int       `json:"progress"`
	Kind       string    `json:"kind"`
	Track      string    `json:"track"`
	Genome     []float64 `json:"genome"`
}

// HallOfFame keeps the best genomes seen across generations, sorted by
// fitness ascending. An agent appears at most once, with its best score.
type HallOfFame struct {
	entries []HallEntry
	maxSize int
}

// NewHallOfFame creates an empty hall holding at most maxSize entries.
func NewHallOfFame(maxSize int) *HallOfFame {
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{
		entries: make([]HallEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Consider offers an entry and reports whether the hall changed.
func (hof *HallOfFame) Consider(entry HallEntry) bool {
	for i, e := range hof.entries {
		if e.AgentID != entry.AgentID {
			continue
		}
		if entry.Fitness >= e.Fitness {
			return false
		}
		hof.entries = append(hof.entries[:i], hof.entries[i+1:]...)
		break
	}

	hof.entries = hof.insertEntry(hof.entries, entry)
	return hof.contains(entry.AgentID)
}

func (hof *HallOfFame) contains(id int) bool {
	for _, e := range hof.entries {
		if e.AgentID == id {
			return true
		}
	}
	return false
}

// insertEntry adds an entry keeping ascending fitness order.
// If the hall is full, the worst entry is dropped.
func (hof *HallOfFame) insertEntry(hall []HallEntry, entry HallEntry) []HallEntry {
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].Fitness > entry.Fitness
	})

	// Full and the entry would be last
	if len(hall) >= hof.maxSize && idx >= hof.maxSize {
		return hall
	}

	entry.Genome = append([]float64(nil), entry.Genome...)
	hall = append(hall, HallEntry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	if len(hall) > hof.maxSize {
		hall = hall[:hof.maxSize]
	}
	return hall
}

// Best returns the lowest-fitness entry.
func (hof *HallOfFame) Best() (HallEntry, bool) {
	if len(hof.entries) == 0 {
		return HallEntry{}, false
	}
	return hof.entries[0], true
}

// Entries returns the entries, best first.
func (hof *HallOfFame) Entries() []HallEntry {
	return hof.entries
}

// Genomes returns the genomes of entries of the given kind, best first.
func (hof *HallOfFame) Genomes(kind string) [][]float64 {
	var out [][]float64
	for _, e := range hof.entries {
		if e.Kind == kind {
			out = append(out, append([]float64(nil), e.Genome...))
		}
	}
	return out
}

func (hof *HallOfFame) Size() int {
	return len(hof.entries)
}

// MarshalJSON serializes the entries as a JSON array, best first.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(hof.entries, "", "  ")
}

// LoadHallOfFameFromFile reads a hall of fame written by WriteHallOfFame.
// The capacity is the larger of maxSize and the number of entries in the file.
func LoadHallOfFameFromFile(path string, maxSize int) (*HallOfFame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hall of fame: %w", err)
	}

	var entries []HallEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing hall of fame JSON: %w", err)
	}

	if len(entries) > maxSize {
		maxSize = len(entries)
	}
	hof := NewHallOfFame(maxSize)
	for _, e := range entries {
		hof.Consider(e)
	}
	return hof, nil
}
