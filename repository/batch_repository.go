package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/anshu-9837/Banning/models"
	"github.com/anshu-9837/Banning/utils"
	"gorm.io/gorm"
)

// BatchRepositoryImpl implements BatchRepository interface
type BatchRepositoryImpl struct {
	*BaseRepository[models.Batch, models.BatchFilter]
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &BatchRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Batch, models.BatchFilter](db),
	}
}

// ByBatchID retrieves a batch by its public identifier
func (r *BatchRepositoryImpl) ByBatchID(ctx context.Context, batchID string) (*models.Batch, error) {
	return r.first(r.getDB(ctx), func(q *gorm.DB) *gorm.DB {
		return q.Where("batch_id = ?", batchID)
	})
}

// RecordOutcome advances the completed counter together with one outcome counter
func (r *BatchRepositoryImpl) RecordOutcome(ctx context.Context, id uint, success bool) error {
	outcome := "failed_count"
	if success {
		outcome = "successful_count"
	}
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Model(&models.Batch{}).Where("id = ?", id).UpdateColumns(map[string]any{
			"completed_count": gorm.Expr("completed_count + ?", 1),
			outcome:           gorm.Expr(outcome+" + ?", 1),
		}).Error
	})
}

// RecordStorageFault advances completed, failed and storage fault counters
func (r *BatchRepositoryImpl) RecordStorageFault(ctx context.Context, id uint) error {
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Model(&models.Batch{}).Where("id = ?", id).UpdateColumns(map[string]any{
			"completed_count":     gorm.Expr("completed_count + ?", 1),
			"failed_count":        gorm.Expr("failed_count + ?", 1),
			"storage_fault_count": gorm.Expr("storage_fault_count + ?", 1),
		}).Error
	})
}

// Finish sets the terminal status of a running batch
func (r *BatchRepositoryImpl) Finish(ctx context.Context, id uint, status string, endedAt time.Time) (bool, error) {
	var updated bool
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.Batch{}).
			Where("id = ? AND status = ?", id, models.BatchStatusRunning).
			Updates(map[string]any{"status": status, "ended_at": endedAt})
		updated = res.RowsAffected > 0
		return res.Error
	})
	return updated, err
}

// ListRunning returns batches that have not reached a terminal status
func (r *BatchRepositoryImpl) ListRunning(ctx context.Context) ([]*models.Batch, error) {
	return r.ByFilter(ctx, models.BatchFilter{Status: utils.ToPtr(models.BatchStatusRunning)}, "id ASC", 0, 0)
}

// PendingItems sums the items an actor's running batches have yet to execute
func (r *BatchRepositoryImpl) PendingItems(ctx context.Context, actorID int64) (int, error) {
	var pending int64
	err := r.getDB(ctx).Model(&models.Batch{}).
		Select("COALESCE(SUM(total_count - completed_count), 0)").
		Where("actor_id = ? AND status = ?", actorID, models.BatchStatusRunning).
		Scan(&pending).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum pending batch items: %w", err)
	}
	return int(pending), nil
}

func (r *BatchRepositoryImpl) applyFilter(query *gorm.DB, filter models.BatchFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}

// ByFilter retrieves batches based on filter criteria
func (r *BatchRepositoryImpl) ByFilter(ctx context.Context, filter models.BatchFilter, orderBy string, limit, offset int) ([]*models.Batch, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB { return r.applyFilter(q, filter) }, orderBy, limit, offset)
}

// Count returns the number of batches matching the filter
func (r *BatchRepositoryImpl) Count(ctx context.Context, filter models.BatchFilter) (int64, error) {
	return r.count(ctx, func(q *gorm.DB) *gorm.DB { return r.applyFilter(q, filter) })
}

// Exists checks if any batch matching the filter exists
func (r *BatchRepositoryImpl) Exists(ctx context.Context, filter models.BatchFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
