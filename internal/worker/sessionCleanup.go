package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// SessionCleaner is the part of the caption service the worker drives.
type SessionCleaner interface {
	CleanupIdleSessions(cutoff time.Time) int
}

// SessionCleanupWorker drops sessions that have been idle for longer than ttl.
type SessionCleanupWorker struct {
	sessions SessionCleaner
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionCleanupWorker(sessions SessionCleaner, interval, ttl time.Duration) *SessionCleanupWorker {
	return &SessionCleanupWorker{
		sessions: sessions,
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (w *SessionCleanupWorker) Start(ctx context.Context) {
	if w.interval <= 0 || w.ttl <= 0 {
		logrus.Info("Session cleanup worker disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.WithFields(logrus.Fields{"interval": w.interval, "ttl": w.ttl}).Info("Session cleanup worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Session cleanup worker stopped")
			return
		case <-ticker.C:
			w.cleanup()
		}
	}
}

func (w *SessionCleanupWorker) cleanup() int {
	removed := w.sessions.CleanupIdleSessions(w.now().Add(-w.ttl))
	if removed > 0 {
		logrus.Infof("Removed %d idle sessions", removed)
	}
	return removed
}
