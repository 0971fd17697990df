package rebuild

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sitegrid/reportsnap/internal/snapshot"
)

// DefaultBatchSize bounds how many projects rebuild concurrently.
const DefaultBatchSize = 5

// ProjectResult is the per-project outcome of a batch rebuild. One
// project's failure never aborts the others.
type ProjectResult struct {
	ProjectID string `json:"projectId"`
	Success   bool   `json:"success"`
	HasData   bool   `json:"hasData"`
	DataSize  int    `json:"dataSize,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchResult aggregates a batch rebuild.
type BatchResult struct {
	TotalProjects int             `json:"totalProjects"`
	SuccessCount  int             `json:"successCount"`
	FailureCount  int             `json:"failureCount"`
	Results       []ProjectResult `json:"results"`
}

// Rebuilder runs full snapshot builds over many projects in fixed-size
// concurrent batches, pausing between batches to bound load on the
// backing store.
type Rebuilder struct {
	builder   *snapshot.Builder
	lister    ProjectLister
	batchSize int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// ProjectLister enumerates the ids of every known project.
type ProjectLister interface {
	ListProjectIDs(ctx context.Context) ([]string, error)
}

// NewRebuilder creates a batch rebuilder. batchPause is the minimum
// spacing between batch starts.
func NewRebuilder(builder *snapshot.Builder, lister ProjectLister, batchSize int, batchPause time.Duration, logger *slog.Logger) *Rebuilder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if batchPause > 0 {
		limit = rate.Every(batchPause)
	}
	return &Rebuilder{
		builder:   builder,
		lister:    lister,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

// RebuildAll rebuilds the full snapshot of every known project.
func (r *Rebuilder) RebuildAll(ctx context.Context) (*BatchResult, error) {
	ids, err := r.lister.ListProjectIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return r.Rebuild(ctx, ids)
}

// Rebuild rebuilds the given projects in batches. The returned result
// always covers every requested project; errors are per-project.
func (r *Rebuilder) Rebuild(ctx context.Context, projectIDs []string) (*BatchResult, error) {
	result := &BatchResult{
		TotalProjects: len(projectIDs),
		Results:       make([]ProjectResult, len(projectIDs)),
	}

	for start := 0; start < len(projectIDs); start += r.batchSize {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting between batches: %w", err)
		}

		end := min(start+r.batchSize, len(projectIDs))
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				result.Results[idx] = r.rebuildOne(ctx, projectIDs[idx])
			}(i)
		}
		wg.Wait()
	}

	for _, res := range result.Results {
		if res.Success {
			result.SuccessCount++
		} else {
			result.FailureCount++
		}
	}
	r.logger.Info("batch rebuild finished",
		"total", result.TotalProjects,
		"succeeded", result.SuccessCount,
		"failed", result.FailureCount)
	return result, nil
}

func (r *Rebuilder) rebuildOne(ctx context.Context, projectID string) ProjectResult {
	snap, err := r.builder.Build(ctx, projectID, nil)
	if err != nil {
		return ProjectResult{ProjectID: projectID, Error: err.Error()}
	}
	if snap == nil {
		return ProjectResult{ProjectID: projectID, Error: "project not found"}
	}
	return ProjectResult{
		ProjectID: projectID,
		Success:   true,
		HasData:   snap.Metadata.Diagnostics.HasData,
		DataSize:  snap.Metadata.TotalDataSize,
	}
}
