package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingCleaner struct {
	mu      sync.Mutex
	cutoffs []time.Time
}

func (c *recordingCleaner) CleanupIdleSessions(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cutoffs = append(c.cutoffs, cutoff)
	return 1
}

func (c *recordingCleaner) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cutoffs)
}

func TestCleanupUsesTTLCutoff(t *testing.T) {
	cleaner := &recordingCleaner{}
	w := NewSessionCleanupWorker(cleaner, time.Minute, 30*time.Minute)
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	assert.Equal(t, 1, w.cleanup())
	assert.Equal(t, []time.Time{now.Add(-30 * time.Minute)}, cleaner.cutoffs)
}

func TestStartRunsUntilCancelled(t *testing.T) {
	cleaner := &recordingCleaner{}
	w := NewSessionCleanupWorker(cleaner, 5*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return cleaner.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestStartDisabled(t *testing.T) {
	cleaner := &recordingCleaner{}
	w := NewSessionCleanupWorker(cleaner, 0, time.Minute)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker should return immediately")
	}
	assert.Zero(t, cleaner.calls())
}
