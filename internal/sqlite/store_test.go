package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitegrid/reportsnap/internal/docstore"
)

func TestStore_SetAndGetDocument(t *testing.T) {
	db := NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	fields := map[string]any{
		"name":   "North Tower",
		"budget": 1200.5,
	}
	err := store.SetDocument(ctx, "projects/p1", fields)
	require.NoError(t, err)

	doc, err := store.GetDocument(ctx, "projects/p1")
	require.NoError(t, err)
	require.Equal(t, "p1", doc.ID)
	require.Equal(t, "North Tower", doc.Fields["name"])
	require.Equal(t, 1200.5, doc.Fields["budget"])

	// Set fully replaces
	err = store.SetDocument(ctx, "projects/p1", map[string]any{"name": "Renamed"})
	require.NoError(t, err)
	doc, err = store.GetDocument(ctx, "projects/p1")
	require.NoError(t, err)
	require.Equal(t, "Renamed", doc.Fields["name"])
	require.NotContains(t, doc.Fields, "budget")
}

func TestStore_GetDocumentNotFound(t *testing.T) {
	db := NewTestDB(t)
	store := NewStore(db)

	_, err := store.GetDocument(context.Background(), "projects/missing")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestStore_InvalidPath(t *testing.T) {
	db := NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	_, err := store.GetDocument(ctx, "projects")
	require.ErrorIs(t, err, docstore.ErrInvalidPath)

	err = store.SetDocument(ctx, "projects/p1/phases", map[string]any{})
	require.ErrorIs(t, err, docstore.ErrInvalidPath)
}

func TestStore_GetAll(t *testing.T) {
	db := NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	require.NoError(t, store.SetDocument(ctx, "projects/p1/phases_status/ph1", map[string]any{"name": "Foundation"}))
	require.NoError(t, store.SetDocument(ctx, "projects/p1/phases_status/ph2", map[string]any{"name": "Framing"}))
	// Nested documents do not leak into the parent collection
	require.NoError(t, store.SetDocument(ctx, "projects/p1/phases_status/ph1/entries/e1", map[string]any{"notes": "poured"}))

	docs, err := store.GetAll(ctx, "projects/p1/phases_status")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	empty, err := store.GetAll(ctx, "projects/p1/tests_status")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestStore_QueryEquality(t *testing.T) {
	db := NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	require.NoError(t, store.SetDocument(ctx, "partRequests/r1", map[string]any{"projectId": "p1", "item": "rebar"}))
	require.NoError(t, store.SetDocument(ctx, "partRequests/r2", map[string]any{"projectId": "p2", "item": "cement"}))
	require.NoError(t, store.SetDocument(ctx, "partRequests/r3", map[string]any{"projectId": "p1", "item": "gravel"}))

	docs, err := store.Query(ctx, "partRequests", docstore.Query{
		Equals: map[string]any{"projectId": "p1"},
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, doc := range docs {
		require.Equal(t, "p1", doc.Fields["projectId"])
	}
}

func TestStore_QueryRangeAndOrder(t *testing.T) {
	db := NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3", "r4"} {
		err := store.SetDocument(ctx, "partRequests/"+id, map[string]any{
			"projectId":   "p1",
			"requestedAt": base.AddDate(0, 0, i).Format(time.RFC3339),
		})
		require.NoError(t, err)
	}

	docs, err := store.Query(ctx, "partRequests", docstore.Query{
		Equals: map[string]any{"projectId": "p1"},
		Range: &docstore.RangeFilter{
			Field: "requestedAt",
			Start: base.AddDate(0, 0, 1),
			End:   base.AddDate(0, 0, 3),
		},
		OrderBy: "requestedAt",
		Desc:    true,
	})
	require.NoError(t, err)
	// [start, end): r2 and r3, newest first
	require.Len(t, docs, 2)
	require.Equal(t, "r3", docs[0].ID)
	require.Equal(t, "r2", docs[1].ID)
}

func TestStore_ListCollections(t *testing.T) {
	db := NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	require.NoError(t, store.SetDocument(ctx, "projects/p1/phases_status/ph1", map[string]any{"name": "A"}))
	require.NoError(t, store.SetDocument(ctx, "projects/p1/tests_status/t1", map[string]any{"name": "B"}))
	require.NoError(t, store.SetDocument(ctx, "projects/p1/phases_status/ph1/entries/e1", map[string]any{"notes": "x"}))
	require.NoError(t, store.SetDocument(ctx, "projects/p2/phases_status/ph1", map[string]any{"name": "C"}))

	names, err := store.ListCollections(ctx, "projects/p1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"phases_status", "tests_status"}, names)
}

func TestStore_CountDocuments(t *testing.T) {
	db := NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	require.NoError(t, store.SetDocument(ctx, "projects/p1/tests_status/t1", map[string]any{}))
	require.NoError(t, store.SetDocument(ctx, "projects/p1/tests_status/t2", map[string]any{}))

	count, err := store.CountDocuments(ctx, "projects/p1/tests_status")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = store.CountDocuments(ctx, "projects/p1/phases_status")
	require.NoError(t, err)
	require.Zero(t, count)
}
