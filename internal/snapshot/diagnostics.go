package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sitegrid/reportsnap/internal/docstore"
)

// CollectionCount pairs a child collection name with its document count.
type CollectionCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CheckResult compares a project's live data with its stored snapshot.
type CheckResult struct {
	HasSnapshot   bool              `json:"hasSnapshot"`
	HasData       bool              `json:"hasData"`
	NeedsRebuild  bool              `json:"needsRebuild"`
	RebuildReason string            `json:"rebuildReason,omitempty"`
	DataSummary   SummaryStats      `json:"dataSummary"`
	StoredSummary *SummaryStats     `json:"storedSummary,omitempty"`
	Collections   []CollectionCount `json:"collections"`
}

// Checker performs the read-only staleness check. It recomputes live
// counts through the same pipeline as a build, persists nothing, and is
// safe to run unboundedly often.
type Checker struct {
	store   docstore.Store
	builder *Builder
	logger  *slog.Logger
}

// NewChecker creates a diagnostics checker sharing the builder's
// aggregation pipeline.
func NewChecker(store docstore.Store, builder *Builder, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{store: store, builder: builder, logger: logger}
}

// Check flags a project as needing a rebuild when no snapshot exists or
// when any live count drifted from the stored summary statistics.
func (c *Checker) Check(ctx context.Context, projectID string) (*CheckResult, error) {
	live, err := c.builder.Assemble(ctx, projectID, nil)
	if err != nil {
		return nil, fmt.Errorf("recomputing live counts: %w", err)
	}

	stored, err := c.builder.GetSnapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{HasSnapshot: stored != nil}
	if live != nil {
		result.DataSummary = live.SummaryStats
		result.HasData = live.Metadata.Diagnostics.HasData
		result.Collections = c.listCollections(ctx, ProjectsCollection+"/"+projectID)
	}
	if stored != nil {
		stats := stored.SummaryStats
		result.StoredSummary = &stats
	}

	switch {
	case stored == nil:
		result.NeedsRebuild = true
		result.RebuildReason = "no snapshot exists"
	case live == nil:
		result.NeedsRebuild = true
		result.RebuildReason = "project missing but snapshot exists"
	case live.SummaryStats.TotalEntries != stored.SummaryStats.TotalEntries:
		result.NeedsRebuild = true
		result.RebuildReason = fmt.Sprintf("entry count drift: live %d, stored %d",
			live.SummaryStats.TotalEntries, stored.SummaryStats.TotalEntries)
	case live.SummaryStats.TotalTests != stored.SummaryStats.TotalTests:
		result.NeedsRebuild = true
		result.RebuildReason = fmt.Sprintf("test count drift: live %d, stored %d",
			live.SummaryStats.TotalTests, stored.SummaryStats.TotalTests)
	case live.SummaryStats.TotalRequests != stored.SummaryStats.TotalRequests:
		result.NeedsRebuild = true
		result.RebuildReason = fmt.Sprintf("material request count drift: live %d, stored %d",
			live.SummaryStats.TotalRequests, stored.SummaryStats.TotalRequests)
	}

	return result, nil
}

// listCollections reports every child collection under the project root
// holding at least one document, for drift investigation.
func (c *Checker) listCollections(ctx context.Context, projectPath string) []CollectionCount {
	names, err := c.store.ListCollections(ctx, projectPath)
	if err != nil {
		c.logger.Error("listing collections failed", "project", projectPath, "error", err)
		return nil
	}

	var counts []CollectionCount
	for _, name := range names {
		count, err := c.store.CountDocuments(ctx, projectPath+"/"+name)
		if err != nil {
			c.logger.Error("counting collection failed", "collection", name, "error", err)
			continue
		}
		if count > 0 {
			counts = append(counts, CollectionCount{Name: name, Count: count})
		}
	}
	return counts
}
