package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sitegrid/reportsnap/internal/rebuild"
)

func TestDelays_DelayFor(t *testing.T) {
	d := Delays{
		Project: 5 * time.Minute,
		Nested:  2 * time.Minute,
		Entry:   1 * time.Minute,
	}

	tests := []struct {
		collection string
		want       time.Duration
	}{
		{"", d.Project},
		{"phases_status", d.Nested},
		{"subphases_status", d.Nested},
		{"phases_status/ph1/entries", d.Entry},
		{"subphases/sp1/entries", d.Entry},
		{"tests_status", d.Entry},
		{"tests", d.Entry},
		{"partRequests", d.Entry},
		{"somethingElse", d.Nested},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, d.DelayFor(tt.collection), "collection %q", tt.collection)
	}
}

func TestListener_HandleSchedulesRebuild(t *testing.T) {
	scheduler := rebuild.NewScheduler(func(ctx context.Context, projectID string) error {
		return nil
	}, nil)
	defer scheduler.Close()

	l := NewListener(nil, scheduler, "site.changes", DefaultDelays, nil)

	l.handle([]byte(`{"projectId":"p1","collection":"phases_status"}`))
	assert.Equal(t, 1, scheduler.Pending())

	// Same project coalesces, a second project does not.
	l.handle([]byte(`{"projectId":"p1","collection":"phases_status/ph1/entries"}`))
	assert.Equal(t, 1, scheduler.Pending())
	l.handle([]byte(`{"projectId":"p2"}`))
	assert.Equal(t, 2, scheduler.Pending())
}

func TestListener_HandleDropsBadEvents(t *testing.T) {
	scheduler := rebuild.NewScheduler(func(ctx context.Context, projectID string) error {
		return nil
	}, nil)
	defer scheduler.Close()

	l := NewListener(nil, scheduler, "site.changes", DefaultDelays, nil)

	l.handle([]byte(`not json`))
	l.handle([]byte(`{"collection":"phases_status"}`))
	assert.Zero(t, scheduler.Pending())
}
