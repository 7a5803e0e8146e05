// Package iteration keeps a game's append-only list of generated versions
// and renders each one as a diff against its predecessor.
package iteration

import (
	"sort"
	"sync"

	"github.com/npezzotti/mob-vibe/internal/diff"
	"github.com/npezzotti/mob-vibe/internal/types"
)

// Entry is one rendered iteration. The oldest iteration carries its raw
// content instead of a diff.
type Entry struct {
	Iteration types.Iteration `json:"iteration"`
	IsDiff    bool            `json:"is_diff"`
	Diff      string          `json:"diff"`
	Added     int             `json:"added"`
	Removed   int             `json:"removed"`
}

// Render builds entries for iterations ordered newest first.
func Render(its []types.Iteration) []Entry {
	entries := make([]Entry, 0, len(its))
	for i, it := range its {
		if i+1 >= len(its) {
			entries = append(entries, Entry{Iteration: it, Diff: it.Content})
			continue
		}

		prev := its[i+1].Content
		added, removed := diff.Stats(prev, it.Content)
		entries = append(entries, Entry{
			Iteration: it,
			IsDiff:    true,
			Diff:      diff.Lines(prev, it.Content),
			Added:     added,
			Removed:   removed,
		})
	}

	return entries
}

// History is one game's iterations, newest first.
type History struct {
	mu    sync.RWMutex
	items []types.Iteration
}

// NewHistory orders its by creation time, newest first, breaking ties by id.
func NewHistory(its []types.Iteration) *History {
	items := make([]types.Iteration, len(its))
	copy(items, its)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].Id > items[j].Id
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	return &History{items: items}
}

// Add prepends it. It reports false if an iteration with the same id is
// already present.
func (h *History) Add(it types.Iteration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, existing := range h.items {
		if existing.Id == it.Id {
			return false
		}
	}

	h.items = append([]types.Iteration{it}, h.items...)
	return true
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

func (h *History) Latest() (types.Iteration, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.items) == 0 {
		return types.Iteration{}, false
	}
	return h.items[0], true
}

func (h *History) Iterations() []types.Iteration {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]types.Iteration, len(h.items))
	copy(out, h.items)
	return out
}

func (h *History) Entries() []Entry {
	return Render(h.Iterations())
}
