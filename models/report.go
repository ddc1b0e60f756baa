package models

import (
	"time"
)

// Report is one executed action. Rows are never mutated after insert.
type Report struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ReportID          string    `gorm:"size:64;not null;uniqueIndex:idx_reports_report_id" json:"report_id"`
	ActorID           int64     `gorm:"not null;index:idx_reports_actor_created,priority:1" json:"actor_id"`
	ActorName         string    `gorm:"size:255" json:"actor_name"`
	Target            string    `gorm:"size:512;not null" json:"target"`
	ReportType        string    `gorm:"size:20;not null" json:"report_type"`
	Category          string    `gorm:"size:64;not null" json:"category"`
	ReportText        string    `gorm:"type:text" json:"report_text"`
	Status            string    `gorm:"size:20;not null;index:idx_reports_status" json:"status"`
	IsBatch           bool      `gorm:"not null;default:false" json:"is_batch"`
	BatchID           *string   `gorm:"size:64;index:idx_reports_batch_id" json:"batch_id,omitempty"`
	SimulatedResponse string    `gorm:"type:text" json:"simulated_response"`
	CreatedAt         time.Time `gorm:"not null;index:idx_reports_actor_created,priority:2" json:"created_at"`
}

func (Report) TableName() string {
	return "reports"
}

// Report outcome constants
const (
	ReportStatusSuccess = "success"
	ReportStatusFailed  = "failed"
)

// Report target kinds
const (
	ReportTypeAccount = "account"
	ReportTypeChannel = "channel"
	ReportTypeGroup   = "group"
)

// ReportTypes lists the accepted target kinds.
var ReportTypes = []string{ReportTypeAccount, ReportTypeChannel, ReportTypeGroup}

// ReportCategories lists the accepted report reasons.
var ReportCategories = []string{
	"dont_like",
	"child_abuse",
	"violence",
	"illegal_goods",
	"illegal_adult",
	"personal_data",
	"scam",
	"copyright",
	"spam",
	"other",
	"must_be_taken_down",
}

func IsValidReportType(kind string) bool {
	for _, k := range ReportTypes {
		if k == kind {
			return true
		}
	}
	return false
}

func IsValidReportCategory(category string) bool {
	for _, c := range ReportCategories {
		if c == category {
			return true
		}
	}
	return false
}

// ReportFilter represents filter criteria for report queries
type ReportFilter struct {
	ID            *uint
	ReportID      *string
	ActorID       *int64
	BatchID       *string
	Status        *string
	IsBatch       *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
