// Package mcp exposes the snapshot builder as MCP tools so agent
// clients can trigger builds and staleness checks directly.
package mcp

import (
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `reportsnap aggregates a construction project's tracked data
(phases, sub-phases, entries, tests, material requests, images) into one
denormalized report snapshot document.

Tools:
- build_report_snapshot: build and persist a snapshot for one project,
  optionally restricted to a date range.
- check_report_snapshot: compare live data against the stored snapshot
  and report whether a rebuild is needed.
- rebuild_projects: rebuild many (or all) projects in throttled batches.`

// Config contains server configuration.
type Config struct {
	Builder       BuilderService
	Checker       CheckerService
	Rebuilder     RebuildService
	AuthEnabled   bool
	Tokens        []string
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and
// middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "reportsnap",
		Version: "0.3.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	// Stdio mode is local-only; auth applies to HTTP mode when enabled.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Tokens))
	}

	registerTools(server, cfg)

	return server
}
