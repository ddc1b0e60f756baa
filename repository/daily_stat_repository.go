package repository

import (
	"context"
	"fmt"

	"github.com/anshu-9837/Banning/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyStatRepositoryImpl implements DailyStatRepository interface
type DailyStatRepositoryImpl struct {
	*BaseRepository[models.DailyStat, models.DailyStatFilter]
}

// NewDailyStatRepository creates a new daily stat repository
func NewDailyStatRepository(db *gorm.DB) DailyStatRepository {
	return &DailyStatRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DailyStat, models.DailyStatFilter](db),
	}
}

// Increment upserts the (actor, date) row, adding one report and one outcome
func (r *DailyStatRepositoryImpl) Increment(ctx context.Context, actorID int64, statDate string, success bool) error {
	row := models.DailyStat{ActorID: actorID, StatDate: statDate, TotalReports: 1}
	outcome := "failed"
	if success {
		row.Successful = 1
		outcome = "successful"
	} else {
		row.Failed = 1
	}

	return r.write(ctx, func(db *gorm.DB) error {
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "actor_id"}, {Name: "stat_date"}},
			DoUpdates: clause.Assignments(map[string]any{
				"total_reports": gorm.Expr("daily_stats.total_reports + ?", 1),
				outcome:         gorm.Expr(fmt.Sprintf("daily_stats.%s + ?", outcome), 1),
			}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to upsert daily stat: %w", err)
		}
		return nil
	})
}

// LockDay makes sure the (actor, date) row exists and locks it until the
// surrounding transaction ends, so quota checks of one actor run one at a time.
func (r *DailyStatRepositoryImpl) LockDay(ctx context.Context, actorID int64, statDate string) (*models.DailyStat, error) {
	var locked *models.DailyStat
	err := r.write(ctx, func(db *gorm.DB) error {
		row := models.DailyStat{ActorID: actorID, StatDate: statDate}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create daily stat: %w", err)
		}
		// sqlite has no row locks; its single writer already serializes the transaction
		stat, err := r.first(db.Clauses(clause.Locking{Strength: "UPDATE"}), func(q *gorm.DB) *gorm.DB {
			return q.Where("actor_id = ? AND stat_date = ?", actorID, statDate)
		})
		if err != nil {
			return fmt.Errorf("failed to lock daily stat: %w", err)
		}
		locked = stat
		return nil
	})
	if err != nil {
		return nil, err
	}
	return locked, nil
}

// ByActorAndDate retrieves one day's counters for an actor
func (r *DailyStatRepositoryImpl) ByActorAndDate(ctx context.Context, actorID int64, statDate string) (*models.DailyStat, error) {
	return r.first(r.getDB(ctx), func(q *gorm.DB) *gorm.DB {
		return q.Where("actor_id = ? AND stat_date = ?", actorID, statDate)
	})
}

// Totals sums every day of an actor's counters
func (r *DailyStatRepositoryImpl) Totals(ctx context.Context, actorID int64) (*StatTotals, error) {
	var totals StatTotals
	err := r.getDB(ctx).Model(&models.DailyStat{}).
		Select("COALESCE(SUM(total_reports), 0) AS total_reports, COALESCE(SUM(successful), 0) AS successful, COALESCE(SUM(failed), 0) AS failed, COUNT(CASE WHEN total_reports > 0 THEN 1 END) AS days").
		Where("actor_id = ?", actorID).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum daily stats: %w", err)
	}
	return &totals, nil
}

func (r *DailyStatRepositoryImpl) applyFilter(query *gorm.DB, filter models.DailyStatFilter) *gorm.DB {
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.StatDate != nil {
		query = query.Where("stat_date = ?", *filter.StatDate)
	}
	if filter.FromDate != nil {
		query = query.Where("stat_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("stat_date <= ?", *filter.ToDate)
	}
	return query
}

// ByFilter retrieves daily stats based on filter criteria
func (r *DailyStatRepositoryImpl) ByFilter(ctx context.Context, filter models.DailyStatFilter, orderBy string, limit, offset int) ([]*models.DailyStat, error) {
	if orderBy == "" {
		orderBy = "stat_date DESC"
	}
	return r.find(ctx, func(q *gorm.DB) *gorm.DB { return r.applyFilter(q, filter) }, orderBy, limit, offset)
}

// Count returns the number of daily stats matching the filter
func (r *DailyStatRepositoryImpl) Count(ctx context.Context, filter models.DailyStatFilter) (int64, error) {
	return r.count(ctx, func(q *gorm.DB) *gorm.DB { return r.applyFilter(q, filter) })
}

// Exists checks if any daily stat matching the filter exists
func (r *DailyStatRepositoryImpl) Exists(ctx context.Context, filter models.DailyStatFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
