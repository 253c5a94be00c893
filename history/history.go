package history

import (
	"slices"
	"sync"
	"time"

	"github.com/use-agent/plexport/models"
)

// maxAge is how long a run stays in the history after it started.
const maxAge = time.Hour

// History is a bounded in-memory record of export runs.
// It stores copies, so callers may keep mutating the run they pass to Put.
// It is safe for concurrent use.
type History struct {
	mu         sync.RWMutex
	store      map[string]models.ExportRun
	maxEntries int
}

// New creates a History holding at most maxEntries runs.
// A background goroutine runs every 5 minutes to evict runs older than 1 hour.
func New(maxEntries int) *History {
	h := newHistory(maxEntries)
	go h.cleanupLoop()
	return h
}

func newHistory(maxEntries int) *History {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &History{
		store:      make(map[string]models.ExportRun),
		maxEntries: maxEntries,
	}
}

// Put stores or replaces a run. If the history is at capacity, the run that
// started first is evicted to make room.
func (h *History) Put(run *models.ExportRun) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.store[run.ID]; !exists && len(h.store) >= h.maxEntries {
		oldestID := ""
		var oldest time.Time
		for id, r := range h.store {
			if oldestID == "" || r.StartedAt.Before(oldest) {
				oldestID, oldest = id, r.StartedAt
			}
		}
		delete(h.store, oldestID)
	}

	h.store[run.ID] = *run
}

// Get returns a copy of the run with the given ID.
func (h *History) Get(id string) (*models.ExportRun, bool) {
	h.mu.RLock()
	r, ok := h.store[id]
	h.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return &r, true
}

// List returns copies of all runs, most recent first.
func (h *History) List() []*models.ExportRun {
	h.mu.RLock()
	runs := make([]*models.ExportRun, 0, len(h.store))
	for _, r := range h.store {
		runs = append(runs, &r)
	}
	h.mu.RUnlock()

	slices.SortFunc(runs, func(a, b *models.ExportRun) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return runs
}

// evictBefore removes finished runs that started before cutoff.
func (h *History) evictBefore(cutoff time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, r := range h.store {
		if r.State != models.RunRunning && r.StartedAt.Before(cutoff) {
			delete(h.store, id)
		}
	}
}

// cleanupLoop evicts runs older than 1 hour every 5 minutes.
func (h *History) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		h.evictBefore(time.Now().Add(-maxAge))
	}
}
