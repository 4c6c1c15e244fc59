package telemetry

import (
	"fmt"
	"log/slog"
	"math"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFirstLap     BookmarkType = "first_lap"
	BookmarkBreakthrough BookmarkType = "breakthrough"
	BookmarkCollapse     BookmarkType = "collapse"
	BookmarkPlateau      BookmarkType = "plateau"
)

// plateauGenerations is how many generations the best fitness must stay flat.
const plateauGenerations = 10

// Bookmark marks a generation worth looking at.
type Bookmark struct {
	RunID       string       `csv:"run_id"`
	Type        BookmarkType `csv:"type"`
	Generation  int          `csv:"generation"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"generation", b.Generation,
		"description", b.Description,
	)
}

// BookmarkDetector watches generation stats for milestones and setbacks.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []GenerationStats
	historySize int
	historyIdx  int
	historyFull bool

	lapped       bool
	progressPeak int
	flatCount    int
	lastBest     float64
	haveLastBest bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]GenerationStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats GenerationStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkFirstLap(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkBreakthrough(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkCollapse(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkPlateau(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	if stats.BestProgress > bd.progressPeak {
		bd.progressPeak = stats.BestProgress
	}
	for i := range bookmarks {
		bookmarks[i].RunID = stats.RunID
	}
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats GenerationStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []GenerationStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkFirstLap(stats GenerationStats) *Bookmark {
	if bd.lapped || stats.BestLaps < 1 {
		return nil
	}
	bd.lapped = true
	return &Bookmark{
		Type:        BookmarkFirstLap,
		Generation:  stats.Generation,
		Description: fmt.Sprintf("Agent %d completed a lap in %d ticks", stats.BestID, stats.BestTicks),
	}
}

// checkBreakthrough fires when the best progress doubles the rolling average.
func (bd *BookmarkDetector) checkBreakthrough(stats GenerationStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.BestProgress
	}
	avg := float64(total) / float64(len(history))
	if avg <= 0 {
		return nil
	}

	if float64(stats.BestProgress) > avg*2.0 && stats.BestProgress >= 10 {
		return &Bookmark{
			Type:        BookmarkBreakthrough,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Best progress %d is %.1fx average (%.1f)", stats.BestProgress, float64(stats.BestProgress)/avg, avg),
		}
	}
	return nil
}

// checkCollapse fires when the best progress falls by more than half from its peak.
func (bd *BookmarkDetector) checkCollapse(stats GenerationStats) *Bookmark {
	if bd.progressPeak < 10 {
		return nil
	}

	drop := 1.0 - float64(stats.BestProgress)/float64(bd.progressPeak)
	if drop > 0.5 {
		oldPeak := bd.progressPeak
		bd.progressPeak = stats.BestProgress
		return &Bookmark{
			Type:        BookmarkCollapse,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Best progress fell %.0f%% from peak %d to %d", drop*100, oldPeak, stats.BestProgress),
		}
	}
	return nil
}

// checkPlateau fires once when the best fitness has not moved for plateauGenerations.
func (bd *BookmarkDetector) checkPlateau(stats GenerationStats) *Bookmark {
	if bd.haveLastBest && math.Abs(stats.BestFitness-bd.lastBest) < 1 {
		bd.flatCount++
	} else {
		bd.flatCount = 0
	}
	bd.lastBest = stats.BestFitness
	bd.haveLastBest = true

	if bd.flatCount == plateauGenerations {
		return &Bookmark{
			Type:        BookmarkPlateau,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Best fitness flat at %.0f for %d generations", stats.BestFitness, plateauGenerations),
		}
	}
	return nil
}
