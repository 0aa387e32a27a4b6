package service

import (
	"sync"
	"time"

	"sift/internal/services/categorize/domain"
)

// Tracker holds the live progress of a run for readers on other goroutines
type Tracker struct {
	mu sync.Mutex
	p  domain.Progress
}

// NewTracker returns an empty tracker
func NewTracker() *Tracker { return &Tracker{} }

// Start resets the tracker for a new run
func (t *Tracker) Start(runID string, files int, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p = domain.Progress{RunID: runID, Started: at, FileCount: files}
}

// File marks file index (1-based) as current
func (t *Tracker) File(index int, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.FileIndex, t.p.File, t.p.Percent, t.p.LastCreated = index, name, 0, ""
}

// Add accumulates line counts and sets the current file position
func (t *Tracker) Add(lines, written, bad int64, percent float64, lastCreated string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Lines += lines
	t.p.Written += written
	t.p.Bad += bad
	t.p.Percent = percent
	if lastCreated != "" {
		t.p.LastCreated = lastCreated
	}
}

// Finish marks the run done
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Done = true
	t.p.File = ""
}

// Snapshot returns a copy of the current progress
func (t *Tracker) Snapshot() domain.Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.p
}
