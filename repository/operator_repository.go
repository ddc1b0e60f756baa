package repository

import (
	"context"

	"github.com/anshu-9837/Banning/models"
	"github.com/anshu-9837/Banning/utils"
	"gorm.io/gorm"
)

// OperatorRepositoryImpl implements OperatorRepository interface
type OperatorRepositoryImpl struct {
	*BaseRepository[models.Operator, models.OperatorFilter]
}

// NewOperatorRepository creates a new operator repository
func NewOperatorRepository(db *gorm.DB) OperatorRepository {
	return &OperatorRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Operator, models.OperatorFilter](db),
	}
}

// ByPhone retrieves an operator by canonical phone number
func (r *OperatorRepositoryImpl) ByPhone(ctx context.Context, phone string) (*models.Operator, error) {
	return r.first(r.getDB(ctx), func(q *gorm.DB) *gorm.DB {
		return q.Where("phone = ?", phone)
	})
}

// UpdateTierAndStatus changes the tier and/or status of an operator
func (r *OperatorRepositoryImpl) UpdateTierAndStatus(ctx context.Context, phone string, tier, status *string) (int64, error) {
	updates := map[string]any{"updated_at": utils.UTCNow()}
	if tier != nil {
		updates["tier"] = *tier
	}
	if status != nil {
		updates["status"] = *status
	}

	var affected int64
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.Operator{}).Where("phone = ?", phone).Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

func (r *OperatorRepositoryImpl) applyFilter(query *gorm.DB, filter models.OperatorFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Phone != nil {
		query = query.Where("phone = ?", *filter.Phone)
	}
	if filter.Tier != nil {
		query = query.Where("tier = ?", *filter.Tier)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}

// ByFilter retrieves operators based on filter criteria
func (r *OperatorRepositoryImpl) ByFilter(ctx context.Context, filter models.OperatorFilter, orderBy string, limit, offset int) ([]*models.Operator, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB { return r.applyFilter(q, filter) }, orderBy, limit, offset)
}

// Count returns the number of operators matching the filter
func (r *OperatorRepositoryImpl) Count(ctx context.Context, filter models.OperatorFilter) (int64, error) {
	return r.count(ctx, func(q *gorm.DB) *gorm.DB { return r.applyFilter(q, filter) })
}

// Exists checks if any operator matching the filter exists
func (r *OperatorRepositoryImpl) Exists(ctx context.Context, filter models.OperatorFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
