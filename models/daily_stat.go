package models

// DailyStat aggregates an actor's reports per calendar day.
type DailyStat struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	ActorID      int64  `gorm:"not null;uniqueIndex:idx_daily_stats_actor_date,priority:1" json:"actor_id"`
	StatDate     string `gorm:"size:10;not null;uniqueIndex:idx_daily_stats_actor_date,priority:2" json:"stat_date"`
	TotalReports int    `gorm:"not null;default:0" json:"total_reports"`
	Successful   int    `gorm:"not null;default:0" json:"successful"`
	Failed       int    `gorm:"not null;default:0" json:"failed"`
}

func (DailyStat) TableName() string {
	return "daily_stats"
}

// DailyStatFilter represents filter criteria for daily stat queries
type DailyStatFilter struct {
	ActorID  *int64
	StatDate *string
	FromDate *string
	ToDate   *string
}

// AllModels lists every persisted entity, in creation order.
func AllModels() []any {
	return []any{
		&Operator{},
		&OneTimeCode{},
		&Session{},
		&LoginLog{},
		&Report{},
		&Batch{},
		&DailyStat{},
	}
}
