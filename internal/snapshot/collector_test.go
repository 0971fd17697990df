package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCollector_NormalizesFieldAliases(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed(t, store, "projects/p1/phases_status/ph1/entries/e1", map[string]any{
		"note":      "tied rebar",
		"state":     "done",
		"createdAt": "2026-01-11T09:00:00Z",
		"images":    []any{"https://img/legacy.jpg", "  "},
	})

	c := NewCollector(store, nil)
	parent := ParentRef{PhaseID: "ph1", PhaseName: "Foundation"}
	entries, err := c.CollectEntries(ctx, "projects/p1", KindPhases, "phases_status", "ph1", parent, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	require.Equal(t, "tied rebar", entry.Text)
	require.Equal(t, "done", entry.Status)
	require.True(t, entry.StatusSet)
	require.True(t, entry.HasOwnDate)
	require.Equal(t, time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC), entry.Timestamp.UTC())
	require.Equal(t, []string{"https://img/legacy.jpg"}, entry.Images["images"])
	require.Equal(t, SourceMainPhase, entry.CollectionType)
	require.Equal(t, "ph1", entry.PhaseID)
}

func TestCollector_CrossSchemaEntryFallback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Parent resolved under phases_status, entries stranded under phases.
	seed(t, store, "projects/p1/phases/ph1/entries/e1", map[string]any{
		"notes":     "poured slab",
		"timestamp": "2026-01-10T10:00:00Z",
	})

	c := NewCollector(store, nil)
	entries, err := c.CollectEntries(ctx, "projects/p1", KindPhases, "phases_status", "ph1", ParentRef{PhaseID: "ph1"}, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "poured slab", entries[0].Text)
}

func TestCollector_TimestampFallbackIsReadOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed(t, store, "projects/p1/phases_status/ph1/entries/e1", map[string]any{
		"notes": "no date on this one",
	})

	fixed := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c := NewCollector(store, nil)
	c.now = func() time.Time { return fixed }

	entries, err := c.CollectEntries(ctx, "projects/p1", KindPhases, "phases_status", "ph1", ParentRef{PhaseID: "ph1"}, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, fixed, entries[0].Timestamp)
	require.False(t, entries[0].HasOwnDate)

	// The fallback never touches the stored record.
	doc, err := store.GetDocument(ctx, "projects/p1/phases_status/ph1/entries/e1")
	require.NoError(t, err)
	require.NotContains(t, doc.Fields, "timestamp")
	require.NotContains(t, doc.Fields, "createdAt")
}

func TestCollector_DateRangeAndOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for id, day := range map[string]int{"e1": 10, "e2": 12, "e3": 14} {
		seed(t, store, "projects/p1/phases_status/ph1/entries/"+id, map[string]any{
			"notes":     "entry " + id,
			"timestamp": time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		})
	}

	dr := &DateRange{
		Start: time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}

	c := NewCollector(store, nil)
	entries, err := c.CollectEntries(ctx, "projects/p1", KindPhases, "phases_status", "ph1", ParentRef{PhaseID: "ph1"}, dr)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first.
	require.Equal(t, "e3", entries[0].ID)
	require.Equal(t, "e2", entries[1].ID)
}

func TestCollector_EmptyParent(t *testing.T) {
	store := newTestStore(t)

	c := NewCollector(store, nil)
	entries, err := c.CollectEntries(context.Background(), "projects/p1", KindPhases, "phases_status", "ph1", ParentRef{}, nil)
	require.NoError(t, err)
	require.Empty(t, entries)
}
