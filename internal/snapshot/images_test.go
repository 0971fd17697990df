package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEntryImages(t *testing.T) {
	ts := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
	entry := Entry{
		ID:             "e1",
		PhaseID:        "ph1",
		PhaseName:      "Foundation",
		CollectionType: SourceMainPhase,
		Timestamp:      ts,
		Images: map[string][]string{
			"afterImageUrls":  {"https://img/after.jpg"},
			"imageUrls":       {"https://img/1.jpg", "https://img/2.jpg"},
			"beforeImageUrls": {"https://img/before.jpg"},
		},
	}

	refs := ExtractEntryImages(entry)
	require.Len(t, refs, 4)

	// Emission follows the field alias table, not timestamps.
	assert.Equal(t, "imageUrls", refs[0].Field)
	assert.Equal(t, "imageUrls", refs[1].Field)
	assert.Equal(t, "beforeImageUrls", refs[2].Field)
	assert.Equal(t, "afterImageUrls", refs[3].Field)

	assert.Equal(t, ImageProgress, refs[0].Type)
	assert.Equal(t, ImageBefore, refs[2].Type)
	assert.Equal(t, ImageAfter, refs[3].Type)

	for _, ref := range refs {
		assert.Equal(t, "e1", ref.EntryID)
		assert.Equal(t, "ph1", ref.PhaseID)
		assert.Equal(t, SourceMainPhase, ref.Source)
		assert.Equal(t, ts, ref.Timestamp)
	}
}

func TestExtractEntryImages_LegacyFieldNames(t *testing.T) {
	entry := Entry{
		ID: "e1",
		Images: map[string][]string{
			"images":      {"https://img/legacy.jpg"},
			"otherImages": {"https://img/other.jpg"},
		},
	}

	refs := ExtractEntryImages(entry)
	require.Len(t, refs, 2)
	assert.Equal(t, ImageProgress, refs[0].Type)
	assert.Equal(t, "images", refs[0].Field)
	assert.Equal(t, ImageOther, refs[1].Type)
	assert.Equal(t, "otherImages", refs[1].Field)
}

func TestExtractTestImage(t *testing.T) {
	ts := time.Date(2026, 1, 13, 12, 0, 0, 0, time.UTC)
	test := TestResult{
		ID:            "t1",
		Name:          "Concrete strength",
		ImageURL:      "https://img/t.jpg",
		LastUpdatedAt: ts,
	}

	ref := ExtractTestImage(test)
	require.NotNil(t, ref)
	assert.Equal(t, ImageTestResult, ref.Type)
	assert.Equal(t, SourceTest, ref.Source)
	assert.Equal(t, "t1", ref.TestID)
	assert.Equal(t, "Concrete strength", ref.TestName)
	assert.Equal(t, ts, ref.Timestamp)

	assert.Nil(t, ExtractTestImage(TestResult{ID: "t2"}))
}
