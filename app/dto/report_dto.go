package dto

import (
	"time"
)

// SubmitReportRequest submits a single report. An empty report type is detected from the target.
type SubmitReportRequest struct {
	Target     string `json:"target" validate:"required,max=512" example:"@spam_account"`
	ReportType string `json:"report_type" validate:"omitempty,oneof=account channel group" example:"account"`
	Category   string `json:"category" validate:"required,max=64" example:"spam"`
	ReportText string `json:"report_text" validate:"omitempty,max=2000"`
}

// ReportDTO is the public view of an executed report
type ReportDTO struct {
	ReportID          string    `json:"report_id"`
	Target            string    `json:"target"`
	ReportType        string    `json:"report_type"`
	Category          string    `json:"category"`
	Status            string    `json:"status"`
	IsBatch           bool      `json:"is_batch"`
	BatchID           *string   `json:"batch_id,omitempty"`
	SimulatedResponse string    `json:"simulated_response"`
	CreatedAt         time.Time `json:"created_at"`
}

// ReportHistoryResponse lists recent reports, newest first
type ReportHistoryResponse struct {
	Reports []ReportDTO `json:"reports"`
}

// DailyStatDTO is one day of counters
type DailyStatDTO struct {
	Date         string `json:"date"`
	TotalReports int    `json:"total_reports"`
	Successful   int    `json:"successful"`
	Failed       int    `json:"failed"`
}

// StatsResponse summarises an actor's reporting activity
type StatsResponse struct {
	Today          DailyStatDTO `json:"today"`
	TotalReports   int64        `json:"total_reports"`
	Successful     int64        `json:"successful"`
	Failed         int64        `json:"failed"`
	SuccessRate    float64      `json:"success_rate"`
	ActiveDays     int64        `json:"active_days"`
	DailyLimit     int          `json:"daily_limit"`
	RemainingToday *int         `json:"remaining_today,omitempty"`
}
