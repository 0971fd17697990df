// Package rebuild schedules snapshot rebuilds: debounced single-project
// rebuilds triggered by data changes, and throttled batch rebuilds.
package rebuild

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BuildFunc rebuilds the full snapshot for one project.
type BuildFunc func(ctx context.Context, projectID string) error

// Scheduler coalesces bursts of change triggers for the same project
// into one delayed rebuild. A new trigger cancels and reschedules any
// pending rebuild for that project id. Once a rebuild starts it runs to
// completion; there is no mid-build cancellation.
type Scheduler struct {
	build  BuildFunc
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool

	wg sync.WaitGroup
}

// NewScheduler creates a debounce scheduler.
func NewScheduler(build BuildFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		build:   build,
		logger:  logger,
		pending: make(map[string]*time.Timer),
	}
}

// Schedule arranges a rebuild of projectID after delay, superseding any
// rebuild already pending for the same project.
func (s *Scheduler) Schedule(projectID string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if timer, ok := s.pending[projectID]; ok {
		timer.Stop()
		s.logger.Debug("rebuild rescheduled", "project", projectID, "delay", delay)
	} else {
		s.logger.Debug("rebuild scheduled", "project", projectID, "delay", delay)
	}

	s.pending[projectID] = time.AfterFunc(delay, func() {
		s.fire(projectID)
	})
}

// Pending returns the number of projects with a rebuild scheduled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close cancels all pending rebuilds and waits for in-flight rebuilds
// to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for id, timer := range s.pending {
		timer.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) fire(projectID string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.pending, projectID)
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()

	if err := s.build(context.Background(), projectID); err != nil {
		s.logger.Error("scheduled rebuild failed", "project", projectID, "error", err)
		return
	}
	s.logger.Info("scheduled rebuild completed", "project", projectID)
}
