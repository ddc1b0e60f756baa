// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/anshu-9837/Banning/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// OperatorRepository defines operations for the operator allowlist
type OperatorRepository interface {
	Repository[models.Operator, models.OperatorFilter]
	ByPhone(ctx context.Context, phone string) (*models.Operator, error)
	UpdateTierAndStatus(ctx context.Context, phone string, tier, status *string) (int64, error)
}

// OneTimeCodeRepository defines operations for login codes
type OneTimeCodeRepository interface {
	Repository[models.OneTimeCode, models.OneTimeCodeFilter]
	// LatestByPhone returns the most recent code for phone. When forUpdate is set the
	// row is locked for the surrounding transaction where the driver supports it.
	LatestByPhone(ctx context.Context, phone string, forUpdate bool) (*models.OneTimeCode, error)
	// IncrementAttempts bumps the attempt counter only while it is below maxAttempts.
	// It reports whether a row was updated.
	IncrementAttempts(ctx context.Context, id uint, maxAttempts int) (bool, error)
	DeleteByPhone(ctx context.Context, phone string) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionRepository defines operations for operator sessions
type SessionRepository interface {
	Repository[models.Session, models.SessionFilter]
	ActiveByActorID(ctx context.Context, actorID int64) (*models.Session, error)
	ActiveByToken(ctx context.Context, token string) (*models.Session, error)
	// DeactivateForLogin clears every active session of the phone or the actor.
	DeactivateForLogin(ctx context.Context, phone string, actorID int64) (int64, error)
	Deactivate(ctx context.Context, id uint, at time.Time) (int64, error)
	Touch(ctx context.Context, id uint, at time.Time) error
	UpdateLanguage(ctx context.Context, id uint, language string) error
	// ExpireIdle deactivates active sessions last seen before cutoff and returns them.
	ExpireIdle(ctx context.Context, cutoff time.Time) ([]*models.Session, error)
}

// LoginLogRepository defines operations for the authentication audit log
type LoginLogRepository interface {
	Repository[models.LoginLog, models.LoginLogFilter]
}

// ReportRepository defines operations for executed reports
type ReportRepository interface {
	Repository[models.Report, models.ReportFilter]
	ByReportID(ctx context.Context, reportID string) (*models.Report, error)
	RecentByActor(ctx context.Context, actorID int64, limit int) ([]*models.Report, error)
}

// BatchRepository defines operations for batch runs
type BatchRepository interface {
	Repository[models.Batch, models.BatchFilter]
	ByBatchID(ctx context.Context, batchID string) (*models.Batch, error)
	// RecordOutcome increments completed and the matching outcome counter in one statement.
	RecordOutcome(ctx context.Context, id uint, success bool) error
	// RecordStorageFault counts an item whose persistence failed as completed and failed.
	RecordStorageFault(ctx context.Context, id uint) error
	// Finish moves a running batch to status, reporting whether it was still running.
	Finish(ctx context.Context, id uint, status string, endedAt time.Time) (bool, error)
	ListRunning(ctx context.Context) ([]*models.Batch, error)
	// PendingItems counts items still to run across the actor's running batches.
	PendingItems(ctx context.Context, actorID int64) (int, error)
}

// DailyStatRepository defines operations for per-day counters
type DailyStatRepository interface {
	Repository[models.DailyStat, models.DailyStatFilter]
	Increment(ctx context.Context, actorID int64, statDate string, success bool) error
	ByActorAndDate(ctx context.Context, actorID int64, statDate string) (*models.DailyStat, error)
	// LockDay upserts an empty row for the day and locks it within the caller's transaction.
	LockDay(ctx context.Context, actorID int64, statDate string) (*models.DailyStat, error)
	Totals(ctx context.Context, actorID int64) (*StatTotals, error)
}

// StatTotals sums an actor's daily stats.
type StatTotals struct {
	TotalReports int64
	Successful   int64
	Failed       int64
	Days         int64
}
