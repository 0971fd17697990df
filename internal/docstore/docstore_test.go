package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPath(t *testing.T) {
	collection, id, err := SplitPath("projects/p1")
	require.NoError(t, err)
	assert.Equal(t, "projects", collection)
	assert.Equal(t, "p1", id)

	collection, id, err = SplitPath("projects/p1/phases_status/ph1")
	require.NoError(t, err)
	assert.Equal(t, "projects/p1/phases_status", collection)
	assert.Equal(t, "ph1", id)

	for _, bad := range []string{"projects", "projects/p1/phases_status", "projects//ph1", ""} {
		_, _, err := SplitPath(bad)
		assert.ErrorIs(t, err, ErrInvalidPath, "path %q", bad)
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2026, 1, 10, 10, 30, 0, 0, time.UTC)

	got, ok := ParseTime(want)
	require.True(t, ok)
	assert.Equal(t, want, got)

	got, ok = ParseTime("2026-01-10T10:30:00Z")
	require.True(t, ok)
	assert.True(t, want.Equal(got))

	// Epoch milliseconds arrive as float64 after a JSON round trip.
	got, ok = ParseTime(float64(want.UnixMilli()))
	require.True(t, ok)
	assert.True(t, want.Equal(got))

	_, ok = ParseTime("last tuesday")
	assert.False(t, ok)
	_, ok = ParseTime(nil)
	assert.False(t, ok)
	_, ok = ParseTime(map[string]any{})
	assert.False(t, ok)
}

func TestCompareValues(t *testing.T) {
	earlier := "2026-01-10T00:00:00Z"
	later := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)

	// Mixed timestamp representations still order correctly.
	cmp, ok := CompareValues(earlier, later)
	require.True(t, ok)
	assert.Equal(t, -1, cmp)

	cmp, ok = CompareValues(later, earlier)
	require.True(t, ok)
	assert.Equal(t, 1, cmp)

	cmp, ok = CompareValues(float64(3), 7)
	require.True(t, ok)
	assert.Equal(t, -1, cmp)

	cmp, ok = CompareValues("abc", "abd")
	require.True(t, ok)
	assert.Equal(t, -1, cmp)

	_, ok = CompareValues("abc", 7)
	assert.False(t, ok)
}
