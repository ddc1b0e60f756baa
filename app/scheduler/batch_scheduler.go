// Package scheduler runs the background jobs of the report service
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/anshu-9837/Banning/app/services"
	businessflow "github.com/anshu-9837/Banning/business_flow"
	"github.com/anshu-9837/Banning/utils"
	"go.uber.org/zap"
)

// BatchRunner is the part of the batch flow the scheduler drives
type BatchRunner interface {
	ResumeRunning(ctx context.Context) (int, error)
	Shutdown(ctx context.Context) error
}

// SessionExpirer deactivates idle sessions
type SessionExpirer interface {
	ExpireIdleSessions(ctx context.Context) (int, error)
}

// CodePurger deletes login codes that expired before a cutoff
type CodePurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// BatchScheduler resumes interrupted batches on start and again on every resume tick,
// so a batch whose lock outlived a crashed process continues once the lock expires.
// It also periodically expires idle sessions and stale login codes.
type BatchScheduler struct {
	batches         BatchRunner
	sessions        SessionExpirer
	codes           CodePurger
	logger          *zap.Logger
	interval        time.Duration
	resumeInterval  time.Duration
	codeRetention   time.Duration
	shutdownTimeout time.Duration
}

// NewBatchScheduler creates a scheduler. codes may be nil to keep expired codes.
func NewBatchScheduler(
	batches BatchRunner,
	sessions SessionExpirer,
	codes CodePurger,
	logger *zap.Logger,
	interval time.Duration,
	resumeInterval time.Duration,
	shutdownTimeout time.Duration,
) *BatchScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if resumeInterval <= 0 {
		resumeInterval = services.DefaultBatchLockTTL / 2
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchScheduler{
		batches:         batches,
		sessions:        sessions,
		codes:           codes,
		logger:          logger,
		interval:        interval,
		resumeInterval:  resumeInterval,
		codeRetention:   utils.OTPExpiry,
		shutdownTimeout: shutdownTimeout,
	}
}

// Start resumes running batches and launches the cleanup loop. The returned stop
// function ends the loop and waits for every batch goroutine to pause.
func (s *BatchScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	s.resume(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanup := time.NewTicker(s.interval)
		defer cleanup.Stop()
		resume := time.NewTicker(s.resumeInterval)
		defer resume.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-resume.C:
				s.resume(ctx)
			case <-cleanup.C:
				s.runOnce(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()

			shutdownCtx, done := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer done()
			if err := s.batches.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("Batch goroutines did not stop in time", zap.Error(err))
			}
		})
	}
}

func (s *BatchScheduler) resume(ctx context.Context) {
	resumed, err := s.batches.ResumeRunning(ctx)
	switch {
	case err != nil && ctx.Err() == nil:
		s.logger.Error("Failed to resume batches", zap.Error(err))
	case resumed > 0:
		s.logger.Info("Resumed interrupted batches", zap.Int("count", resumed))
	}
}

func (s *BatchScheduler) runOnce(ctx context.Context) {
	expired, err := s.sessions.ExpireIdleSessions(ctx)
	switch {
	case err != nil:
		s.logger.Error("Session cleanup failed", zap.Error(err))
	case expired > 0:
		s.logger.Info("Expired idle sessions", zap.Int("count", expired))
	}

	if s.codes == nil {
		return
	}
	purged, err := s.codes.DeleteExpired(ctx, utils.UTCNow().Add(-s.codeRetention))
	switch {
	case err != nil:
		s.logger.Error("Login code cleanup failed", zap.Error(err))
	case purged > 0:
		s.logger.Debug("Purged expired login codes", zap.Int64("count", purged))
	}
}

var (
	_ BatchRunner    = (businessflow.BatchFlow)(nil)
	_ SessionExpirer = (businessflow.AuthFlow)(nil)
)
