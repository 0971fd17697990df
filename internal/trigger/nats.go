// Package trigger turns change notifications from the document store
// into debounced snapshot rebuilds.
package trigger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sitegrid/reportsnap/internal/rebuild"
)

// ChangeEvent is the payload published on every project or nested
// document write. Collection names the collection the write touched,
// relative to the project root; empty means the project document itself.
type ChangeEvent struct {
	ProjectID  string `json:"projectId"`
	Collection string `json:"collection,omitempty"`
	DocumentID string `json:"documentId,omitempty"`
}

// Delays holds the debounce delay per trigger class. Project-level
// writes settle the longest; entry/test/material writes rebuild fastest.
type Delays struct {
	Project time.Duration
	Nested  time.Duration
	Entry   time.Duration
}

// DefaultDelays mirrors the delays the original triggers used.
var DefaultDelays = Delays{
	Project: 5 * time.Minute,
	Nested:  2 * time.Minute,
	Entry:   1 * time.Minute,
}

// Listener subscribes to change events and schedules rebuilds.
type Listener struct {
	conn      *nats.Conn
	scheduler *rebuild.Scheduler
	subject   string
	delays    Delays
	logger    *slog.Logger
	sub       *nats.Subscription
}

// NewListener creates a change listener. Start must be called before
// any events are handled.
func NewListener(conn *nats.Conn, scheduler *rebuild.Scheduler, subject string, delays Delays, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		conn:      conn,
		scheduler: scheduler,
		subject:   subject,
		delays:    delays,
		logger:    logger,
	}
}

// Start subscribes to the change subject.
func (l *Listener) Start() error {
	sub, err := l.conn.Subscribe(l.subject, func(msg *nats.Msg) {
		l.handle(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", l.subject, err)
	}
	l.sub = sub
	l.logger.Info("change listener started", "subject", l.subject)
	return nil
}

// Close drains the subscription.
func (l *Listener) Close() error {
	if l.sub == nil {
		return nil
	}
	if err := l.sub.Drain(); err != nil {
		return fmt.Errorf("draining subscription: %w", err)
	}
	return nil
}

func (l *Listener) handle(data []byte) {
	var event ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		l.logger.Warn("dropping malformed change event", "error", err)
		return
	}
	if event.ProjectID == "" {
		l.logger.Warn("dropping change event without project id")
		return
	}

	delay := l.delays.DelayFor(event.Collection)
	l.logger.Debug("change event received",
		"project", event.ProjectID, "collection", event.Collection, "delay", delay)
	l.scheduler.Schedule(event.ProjectID, delay)
}

// DelayFor picks the debounce delay for a write in the named collection.
func (d Delays) DelayFor(collection string) time.Duration {
	switch {
	case collection == "":
		return d.Project
	case strings.Contains(collection, "entries"),
		strings.Contains(collection, "test"),
		collection == "partRequests":
		return d.Entry
	default:
		return d.Nested
	}
}
