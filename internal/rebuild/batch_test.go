package rebuild

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitegrid/reportsnap/internal/docstore"
	"github.com/sitegrid/reportsnap/internal/snapshot"
	"github.com/sitegrid/reportsnap/internal/sqlite"
)

func newTestBuilder(t *testing.T) (docstore.Store, *snapshot.Builder) {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() {
		db.Close()
	})

	store := sqlite.NewStore(db)
	return store, snapshot.NewBuilder(store, nil, nil)
}

func seedDoc(t *testing.T, store docstore.Store, path string, fields map[string]any) {
	t.Helper()
	require.NoError(t, store.SetDocument(context.Background(), path, fields))
}

func TestRebuilder_MixedOutcomes(t *testing.T) {
	store, builder := newTestBuilder(t)
	ctx := context.Background()

	seedDoc(t, store, "projects/p1", map[string]any{"name": "Full"})
	seedDoc(t, store, "projects/p1/phases_status/ph1", map[string]any{"name": "A"})
	seedDoc(t, store, "projects/p1/phases_status/ph1/entries/e1", map[string]any{
		"notes": "work done", "timestamp": "2026-03-01T00:00:00Z",
	})
	seedDoc(t, store, "projects/p2", map[string]any{"name": "Empty"})

	r := NewRebuilder(builder, StoreLister{Store: store}, 2, 0, nil)
	result, err := r.Rebuild(ctx, []string{"p1", "missing", "p2"})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalProjects)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	require.Len(t, result.Results, 3)

	// Results stay aligned with the requested order.
	assert.Equal(t, "p1", result.Results[0].ProjectID)
	assert.True(t, result.Results[0].Success)
	assert.True(t, result.Results[0].HasData)
	assert.Positive(t, result.Results[0].DataSize)

	assert.Equal(t, "missing", result.Results[1].ProjectID)
	assert.False(t, result.Results[1].Success)
	assert.Equal(t, "project not found", result.Results[1].Error)

	assert.True(t, result.Results[2].Success)
	assert.False(t, result.Results[2].HasData)
}

func TestRebuilder_RebuildAll(t *testing.T) {
	store, builder := newTestBuilder(t)
	ctx := context.Background()

	seedDoc(t, store, "projects/p1", map[string]any{})
	seedDoc(t, store, "projects/p2", map[string]any{})

	r := NewRebuilder(builder, StoreLister{Store: store}, 0, 0, nil)
	result, err := r.RebuildAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalProjects)
	assert.Equal(t, 2, result.SuccessCount)

	// Every project got a persisted snapshot.
	for _, id := range []string{"p1", "p2"} {
		snap, err := builder.GetSnapshot(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, snap, id)
	}
}

func TestRebuilder_BatchPauseThrottles(t *testing.T) {
	store, builder := newTestBuilder(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3"} {
		seedDoc(t, store, "projects/"+id, map[string]any{})
	}

	pause := 30 * time.Millisecond
	r := NewRebuilder(builder, StoreLister{Store: store}, 1, pause, nil)

	started := time.Now()
	result, err := r.Rebuild(ctx, []string{"p1", "p2", "p3"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.SuccessCount)

	// Three batches of one, spaced by the pause: at least two pauses.
	assert.GreaterOrEqual(t, time.Since(started), 2*pause)
}

func TestRebuilder_ContextCancellation(t *testing.T) {
	store, builder := newTestBuilder(t)

	seedDoc(t, store, "projects/p1", map[string]any{})
	seedDoc(t, store, "projects/p2", map[string]any{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRebuilder(builder, StoreLister{Store: store}, 1, time.Hour, nil)
	_, err := r.Rebuild(ctx, []string{"p1", "p2"})
	require.Error(t, err)
}
