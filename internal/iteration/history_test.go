package iteration

import (
	"testing"
	"time"

	"github.com/npezzotti/mob-vibe/internal/diff"
	"github.com/npezzotti/mob-vibe/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHistory_Order(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	h := NewHistory([]types.Iteration{
		{Id: 1, CreatedAt: base},
		{Id: 3, CreatedAt: base.Add(time.Minute)},
		{Id: 2, CreatedAt: base.Add(time.Minute)},
		{Id: 4, CreatedAt: base.Add(-time.Minute)},
	})

	var ids []int
	for _, it := range h.Iterations() {
		ids = append(ids, it.Id)
	}
	assert.Equal(t, []int{3, 2, 1, 4}, ids, "expected newest first with id tie breaker")
}

func TestHistory_Add(t *testing.T) {
	h := NewHistory([]types.Iteration{{Id: 1, Content: "a"}})

	assert.True(t, h.Add(types.Iteration{Id: 2, Content: "a\nb"}), "expected new iteration to be added")
	assert.False(t, h.Add(types.Iteration{Id: 2, Content: "other"}), "expected duplicate id to be ignored")
	assert.Equal(t, 2, h.Len())

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, 2, latest.Id, "expected added iteration to be first")
	assert.Equal(t, "a\nb", latest.Content)
}

func TestHistory_LatestEmpty(t *testing.T) {
	_, ok := NewHistory(nil).Latest()
	assert.False(t, ok, "expected no latest iteration")
}

func TestHistory_Entries(t *testing.T) {
	h := NewHistory(nil)
	h.Add(types.Iteration{Id: 1, Content: "a\nb"})
	h.Add(types.Iteration{Id: 2, Content: "a\nc"})
	h.Add(types.Iteration{Id: 3, Content: "a\nc"})

	entries := h.Entries()
	require.Len(t, entries, 3)

	assert.Equal(t, 3, entries[0].Iteration.Id)
	assert.True(t, entries[0].IsDiff)
	assert.Equal(t, diff.NoChanges, entries[0].Diff)

	assert.Equal(t, 2, entries[1].Iteration.Id)
	assert.True(t, entries[1].IsDiff)
	assert.Equal(t, "- b\n+ c", entries[1].Diff)
	assert.Equal(t, 1, entries[1].Added)
	assert.Equal(t, 1, entries[1].Removed)

	assert.Equal(t, 1, entries[2].Iteration.Id)
	assert.False(t, entries[2].IsDiff, "expected oldest entry to carry raw content")
	assert.Equal(t, "a\nb", entries[2].Diff)
}

func TestRender_Empty(t *testing.T) {
	assert.Empty(t, Render(nil))
}

func TestHistory_IterationsCopy(t *testing.T) {
	h := NewHistory([]types.Iteration{{Id: 1, Content: "a"}})
	its := h.Iterations()
	its[0].Content = "changed"

	latest, _ := h.Latest()
	assert.Equal(t, "a", latest.Content, "expected history to be unaffected by caller edits")
}
