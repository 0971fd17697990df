package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sitegrid/reportsnap/internal/rebuild"
	"github.com/sitegrid/reportsnap/internal/snapshot"
)

// BuilderService defines the build operations needed by MCP.
type BuilderService interface {
	Build(ctx context.Context, projectID string, dr *snapshot.DateRange) (*snapshot.Snapshot, error)
}

// CheckerService defines the diagnostics operations needed by MCP.
type CheckerService interface {
	Check(ctx context.Context, projectID string) (*snapshot.CheckResult, error)
}

// RebuildService defines the batch operations needed by MCP.
type RebuildService interface {
	RebuildAll(ctx context.Context) (*rebuild.BatchResult, error)
	Rebuild(ctx context.Context, projectIDs []string) (*rebuild.BatchResult, error)
}

type BuildSnapshotParams struct {
	ProjectID string `json:"project_id" jsonschema:"the project to build a snapshot for"`
	StartDate string `json:"start_date,omitempty" jsonschema:"optional RFC 3339 range start (inclusive)"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"optional RFC 3339 range end (exclusive)"`
}

type BuildSnapshotResult struct {
	Success    bool   `json:"success"`
	ProjectID  string `json:"projectId"`
	SnapshotID string `json:"snapshotId,omitempty"`
	DataSize   int    `json:"dataSize"`
	HasData    bool   `json:"hasData"`
}

type CheckSnapshotParams struct {
	ProjectID string `json:"project_id" jsonschema:"the project to check"`
}

type RebuildProjectsParams struct {
	ProjectIDs []string `json:"project_ids,omitempty" jsonschema:"projects to rebuild; omit to rebuild all"`
}

func registerTools(server *sdkmcp.Server, cfg Config) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "build_report_snapshot",
		Description: "Build and persist the report snapshot for one project, optionally restricted to a date range",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, params BuildSnapshotParams) (*sdkmcp.CallToolResult, BuildSnapshotResult, error) {
		dr, err := parseRange(params.StartDate, params.EndDate)
		if err != nil {
			return nil, BuildSnapshotResult{}, err
		}

		snap, err := cfg.Builder.Build(ctx, params.ProjectID, dr)
		if err != nil {
			return nil, BuildSnapshotResult{}, err
		}
		if snap == nil {
			return nil, BuildSnapshotResult{}, fmt.Errorf("project %q not found", params.ProjectID)
		}

		return nil, BuildSnapshotResult{
			Success:    true,
			ProjectID:  params.ProjectID,
			SnapshotID: snapshot.Key(params.ProjectID, dr),
			DataSize:   snap.Metadata.TotalDataSize,
			HasData:    snap.Metadata.Diagnostics.HasData,
		}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "check_report_snapshot",
		Description: "Compare a project's live data with its stored snapshot and report whether a rebuild is needed",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, params CheckSnapshotParams) (*sdkmcp.CallToolResult, snapshot.CheckResult, error) {
		result, err := cfg.Checker.Check(ctx, params.ProjectID)
		if err != nil {
			return nil, snapshot.CheckResult{}, err
		}
		return nil, *result, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "rebuild_projects",
		Description: "Rebuild snapshots for the given projects (or every project) in throttled batches",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, params RebuildProjectsParams) (*sdkmcp.CallToolResult, rebuild.BatchResult, error) {
		var result *rebuild.BatchResult
		var err error
		if len(params.ProjectIDs) == 0 {
			result, err = cfg.Rebuilder.RebuildAll(ctx)
		} else {
			result, err = cfg.Rebuilder.Rebuild(ctx, params.ProjectIDs)
		}
		if err != nil {
			return nil, rebuild.BatchResult{}, err
		}
		return nil, *result, nil
	})
}

func parseRange(start, end string) (*snapshot.DateRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, errors.New("start_date and end_date must be supplied together")
	}
	startTime, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return nil, errors.New("start_date must be RFC 3339")
	}
	endTime, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return nil, errors.New("end_date must be RFC 3339")
	}
	if !startTime.Before(endTime) {
		return nil, errors.New("start_date must precede end_date")
	}
	return &snapshot.DateRange{Start: startTime, End: endTime}, nil
}
