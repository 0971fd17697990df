package rebuild

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_CoalescesBursts(t *testing.T) {
	var builds atomic.Int32
	s := NewScheduler(func(ctx context.Context, projectID string) error {
		builds.Add(1)
		return nil
	}, nil)
	defer s.Close()

	for range 5 {
		s.Schedule("p1", 20*time.Millisecond)
	}
	assert.Equal(t, 1, s.Pending())

	require.Eventually(t, func() bool {
		return builds.Load() == 1 && s.Pending() == 0
	}, time.Second, 5*time.Millisecond)

	// No stragglers fire later.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), builds.Load())
}

func TestScheduler_PerProjectTimers(t *testing.T) {
	seen := make(chan string, 4)
	s := NewScheduler(func(ctx context.Context, projectID string) error {
		seen <- projectID
		return nil
	}, nil)
	defer s.Close()

	s.Schedule("p1", 10*time.Millisecond)
	s.Schedule("p2", 10*time.Millisecond)
	assert.Equal(t, 2, s.Pending())

	got := map[string]bool{}
	for range 2 {
		select {
		case id := <-seen:
			got[id] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for rebuilds")
		}
	}
	assert.True(t, got["p1"])
	assert.True(t, got["p2"])
}

func TestScheduler_RescheduleResetsDelay(t *testing.T) {
	var builds atomic.Int32
	s := NewScheduler(func(ctx context.Context, projectID string) error {
		builds.Add(1)
		return nil
	}, nil)
	defer s.Close()

	s.Schedule("p1", 30*time.Millisecond)
	time.Sleep(15 * time.Millisecond)
	s.Schedule("p1", 100*time.Millisecond)

	// The original timer would have fired by now; the reschedule must
	// have superseded it.
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), builds.Load())

	require.Eventually(t, func() bool {
		return builds.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_CloseCancelsPending(t *testing.T) {
	var builds atomic.Int32
	s := NewScheduler(func(ctx context.Context, projectID string) error {
		builds.Add(1)
		return nil
	}, nil)

	s.Schedule("p1", 20*time.Millisecond)
	s.Close()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), builds.Load())

	// Scheduling after Close is a no-op.
	s.Schedule("p2", time.Millisecond)
	assert.Equal(t, 0, s.Pending())
}
