package repository

import (
	"context"

	"github.com/anshu-9837/Banning/models"
	"gorm.io/gorm"
)

// LoginLogRepositoryImpl implements LoginLogRepository interface
type LoginLogRepositoryImpl struct {
	*BaseRepository[models.LoginLog, models.LoginLogFilter]
}

// NewLoginLogRepository creates a new login log repository
func NewLoginLogRepository(db *gorm.DB) LoginLogRepository {
	return &LoginLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.LoginLog, models.LoginLogFilter](db),
	}
}

func (r *LoginLogRepositoryImpl) applyFilter(query *gorm.DB, filter models.LoginLogFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.Phone != nil {
		query = query.Where("phone = ?", *filter.Phone)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves login log entries based on filter criteria
func (r *LoginLogRepositoryImpl) ByFilter(ctx context.Context, filter models.LoginLogFilter, orderBy string, limit, offset int) ([]*models.LoginLog, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB { return r.applyFilter(q, filter) }, orderBy, limit, offset)
}

// Count returns the number of login log entries matching the filter
func (r *LoginLogRepositoryImpl) Count(ctx context.Context, filter models.LoginLogFilter) (int64, error) {
	return r.count(ctx, func(q *gorm.DB) *gorm.DB { return r.applyFilter(q, filter) })
}

// Exists checks if any login log entry matching the filter exists
func (r *LoginLogRepositoryImpl) Exists(ctx context.Context, filter models.LoginLogFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
