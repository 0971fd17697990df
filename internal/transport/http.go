// Package transport exposes the snapshot builder over HTTP.
package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sitegrid/reportsnap/internal/rebuild"
	"github.com/sitegrid/reportsnap/internal/snapshot"
)

// Server wires HTTP handlers to the snapshot services.
type Server struct {
	builder   *snapshot.Builder
	checker   *snapshot.Checker
	rebuilder *rebuild.Rebuilder
	logger    *slog.Logger
}

// NewServer creates the HTTP server facade.
func NewServer(builder *snapshot.Builder, checker *snapshot.Checker, rebuilder *rebuild.Rebuilder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{builder: builder, checker: checker, rebuilder: rebuilder, logger: logger}
}

// NewRouter builds the route table. authMiddleware guards the batch
// operations; metricsHandler serves /metrics when non-nil.
func NewRouter(s *Server, authMiddleware func(http.Handler) http.Handler, metricsHandler http.Handler) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("POST /v1/snapshots/build", s.handleBuild)
	router.HandleFunc("GET /v1/snapshots/{projectId}/check", s.handleCheck)

	rebuildAll := http.HandlerFunc(s.handleRebuildAll)
	rebuildSome := http.HandlerFunc(s.handleRebuild)
	if authMiddleware != nil {
		router.Handle("POST /v1/snapshots/rebuild-all", authMiddleware(rebuildAll))
		router.Handle("POST /v1/snapshots/rebuild", authMiddleware(rebuildSome))
	} else {
		router.Handle("POST /v1/snapshots/rebuild-all", rebuildAll)
		router.Handle("POST /v1/snapshots/rebuild", rebuildSome)
	}

	router.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metricsHandler != nil {
		router.Handle("GET /metrics", metricsHandler)
	}

	return router
}

// BuildRequest is the direct build trigger. Dates are RFC 3339; both or
// neither must be supplied.
type BuildRequest struct {
	ProjectID string `json:"projectId"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// BuildResponse reports the outcome of a single build.
type BuildResponse struct {
	Success    bool   `json:"success"`
	ProjectID  string `json:"projectId"`
	SnapshotID string `json:"snapshotId,omitempty"`
	DataSize   int    `json:"dataSize"`
	HasData    bool   `json:"hasData"`
	Error      string `json:"error,omitempty"`
}

// RebuildRequest selects projects for a batch rebuild.
type RebuildRequest struct {
	ProjectIDs []string `json:"projectIds"`
}

// BatchResponse wraps a batch rebuild outcome.
type BatchResponse struct {
	Success bool `json:"success"`
	*rebuild.BatchResult
	Error string `json:"error,omitempty"`
}

// CheckResponse wraps a diagnostics check.
type CheckResponse struct {
	Success bool `json:"success"`
	*snapshot.CheckResult
	Error string `json:"error,omitempty"`
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, BuildResponse{Error: "invalid request body"})
		return
	}
	if req.ProjectID == "" {
		writeJSON(w, http.StatusBadRequest, BuildResponse{Error: "projectId is required"})
		return
	}

	dr, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, BuildResponse{ProjectID: req.ProjectID, Error: err.Error()})
		return
	}

	snap, err := s.builder.Build(r.Context(), req.ProjectID, dr)
	if err != nil {
		s.logger.Error("build failed", "project", req.ProjectID, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, snapshot.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, BuildResponse{ProjectID: req.ProjectID, Error: err.Error()})
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusNotFound, BuildResponse{ProjectID: req.ProjectID, Error: "project not found"})
		return
	}

	writeJSON(w, http.StatusOK, BuildResponse{
		Success:    true,
		ProjectID:  req.ProjectID,
		SnapshotID: snapshot.Key(req.ProjectID, dr),
		DataSize:   snap.Metadata.TotalDataSize,
		HasData:    snap.Metadata.Diagnostics.HasData,
	})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectId")

	result, err := s.checker.Check(r.Context(), projectID)
	if err != nil {
		s.logger.Error("check failed", "project", projectID, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, snapshot.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, CheckResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, CheckResponse{Success: true, CheckResult: result})
}

func (s *Server) handleRebuildAll(w http.ResponseWriter, r *http.Request) {
	result, err := s.rebuilder.RebuildAll(r.Context())
	if err != nil {
		s.logger.Error("rebuild-all failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, BatchResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{Success: true, BatchResult: result})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	var req RebuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, BatchResponse{Error: "invalid request body"})
		return
	}
	if len(req.ProjectIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, BatchResponse{Error: "projectIds is required"})
		return
	}

	result, err := s.rebuilder.Rebuild(r.Context(), req.ProjectIDs)
	if err != nil {
		s.logger.Error("rebuild failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, BatchResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{Success: true, BatchResult: result})
}

func parseRange(start, end string) (*snapshot.DateRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, errors.New("startDate and endDate must be supplied together")
	}
	startTime, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return nil, errors.New("startDate must be RFC 3339")
	}
	endTime, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return nil, errors.New("endDate must be RFC 3339")
	}
	if !startTime.Before(endTime) {
		return nil, errors.New("startDate must precede endDate")
	}
	return &snapshot.DateRange{Start: startTime, End: endTime}, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
