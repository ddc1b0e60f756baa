package repository

import (
	"context"
	"time"

	"github.com/anshu-9837/Banning/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OneTimeCodeRepositoryImpl implements OneTimeCodeRepository interface
type OneTimeCodeRepositoryImpl struct {
	*BaseRepository[models.OneTimeCode, models.OneTimeCodeFilter]
}

// NewOneTimeCodeRepository creates a new one-time code repository
func NewOneTimeCodeRepository(db *gorm.DB) OneTimeCodeRepository {
	return &OneTimeCodeRepositoryImpl{
		BaseRepository: NewBaseRepository[models.OneTimeCode, models.OneTimeCodeFilter](db),
	}
}

// LatestByPhone retrieves the most recently created code for a phone
func (r *OneTimeCodeRepositoryImpl) LatestByPhone(ctx context.Context, phone string, forUpdate bool) (*models.OneTimeCode, error) {
	db := r.getDB(ctx)
	if forUpdate {
		// sqlite has no row locks; its dialector drops the clause
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.first(db, func(q *gorm.DB) *gorm.DB {
		return q.Where("phone = ?", phone).Order("created_at DESC").Order("id DESC").Limit(1)
	})
}

// IncrementAttempts adds one attempt unless the limit has been reached
func (r *OneTimeCodeRepositoryImpl) IncrementAttempts(ctx context.Context, id uint, maxAttempts int) (bool, error) {
	var updated bool
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.OneTimeCode{}).
			Where("id = ? AND attempts < ?", id, maxAttempts).
			UpdateColumn("attempts", gorm.Expr("attempts + ?", 1))
		updated = res.RowsAffected > 0
		return res.Error
	})
	return updated, err
}

// DeleteByPhone removes every code issued to a phone
func (r *OneTimeCodeRepositoryImpl) DeleteByPhone(ctx context.Context, phone string) (int64, error) {
	var affected int64
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Where("phone = ?", phone).Delete(&models.OneTimeCode{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// DeleteExpired removes codes that expired before the given time
func (r *OneTimeCodeRepositoryImpl) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var affected int64
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Where("expires_at < ?", before).Delete(&models.OneTimeCode{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

func (r *OneTimeCodeRepositoryImpl) applyFilter(query *gorm.DB, filter models.OneTimeCodeFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Phone != nil {
		query = query.Where("phone = ?", *filter.Phone)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	if filter.ExpiresBefore != nil {
		query = query.Where("expires_at < ?", *filter.ExpiresBefore)
	}
	return query
}

// ByFilter retrieves codes based on filter criteria
func (r *OneTimeCodeRepositoryImpl) ByFilter(ctx context.Context, filter models.OneTimeCodeFilter, orderBy string, limit, offset int) ([]*models.OneTimeCode, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB { return r.applyFilter(q, filter) }, orderBy, limit, offset)
}

// Count returns the number of codes matching the filter
func (r *OneTimeCodeRepositoryImpl) Count(ctx context.Context, filter models.OneTimeCodeFilter) (int64, error) {
	return r.count(ctx, func(q *gorm.DB) *gorm.DB { return r.applyFilter(q, filter) })
}

// Exists checks if any code matching the filter exists
func (r *OneTimeCodeRepositoryImpl) Exists(ctx context.Context, filter models.OneTimeCodeFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
