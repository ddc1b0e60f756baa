package repository

import (
	"context"

	"github.com/anshu-9837/Banning/models"
	"gorm.io/gorm"
)

// ReportRepositoryImpl implements ReportRepository interface
type ReportRepositoryImpl struct {
	*BaseRepository[models.Report, models.ReportFilter]
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &ReportRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Report, models.ReportFilter](db),
	}
}

// ByReportID retrieves a report by its public identifier
func (r *ReportRepositoryImpl) ByReportID(ctx context.Context, reportID string) (*models.Report, error) {
	return r.first(r.getDB(ctx), func(q *gorm.DB) *gorm.DB {
		return q.Where("report_id = ?", reportID)
	})
}

// RecentByActor returns the actor's latest reports, newest first
func (r *ReportRepositoryImpl) RecentByActor(ctx context.Context, actorID int64, limit int) ([]*models.Report, error) {
	return r.ByFilter(ctx, models.ReportFilter{ActorID: &actorID}, "created_at DESC, id DESC", limit, 0)
}

func (r *ReportRepositoryImpl) applyFilter(query *gorm.DB, filter models.ReportFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.ReportID != nil {
		query = query.Where("report_id = ?", *filter.ReportID)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.IsBatch != nil {
		query = query.Where("is_batch = ?", *filter.IsBatch)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves reports based on filter criteria
func (r *ReportRepositoryImpl) ByFilter(ctx context.Context, filter models.ReportFilter, orderBy string, limit, offset int) ([]*models.Report, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB { return r.applyFilter(q, filter) }, orderBy, limit, offset)
}

// Count returns the number of reports matching the filter
func (r *ReportRepositoryImpl) Count(ctx context.Context, filter models.ReportFilter) (int64, error) {
	return r.count(ctx, func(q *gorm.DB) *gorm.DB { return r.applyFilter(q, filter) })
}

// Exists checks if any report matching the filter exists
func (r *ReportRepositoryImpl) Exists(ctx context.Context, filter models.ReportFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
