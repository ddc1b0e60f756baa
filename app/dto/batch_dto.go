package dto

import (
	"time"
)

// StartBatchRequest starts N sequential reports against one target
type StartBatchRequest struct {
	Target       string `json:"target" validate:"required,max=512" example:"https://t.me/some_channel"`
	ReportType   string `json:"report_type" validate:"omitempty,oneof=account channel group" example:"channel"`
	Category     string `json:"category" validate:"required,max=64" example:"scam"`
	ReportText   string `json:"report_text" validate:"omitempty,max=2000"`
	Count        int    `json:"count" validate:"required,min=1" example:"10"`
	DelaySeconds int    `json:"delay_seconds" validate:"min=0" example:"2"`
}

// BatchDTO is the public view of a batch row
type BatchDTO struct {
	BatchID           string     `json:"batch_id"`
	Target            string     `json:"target"`
	ReportType        string     `json:"report_type"`
	Category          string     `json:"category"`
	TotalCount        int        `json:"total_count"`
	CompletedCount    int        `json:"completed_count"`
	SuccessfulCount   int        `json:"successful_count"`
	FailedCount       int        `json:"failed_count"`
	StorageFaultCount int        `json:"storage_fault_count"`
	DelaySeconds      int        `json:"delay_seconds"`
	Status            string     `json:"status"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
}

// BatchProgress is emitted after every executed item
type BatchProgress struct {
	BatchID       string  `json:"batch_id"`
	ActorID       int64   `json:"actor_id"`
	Target        string  `json:"target"`
	Completed     int     `json:"completed"`
	Total         int     `json:"total"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	StorageFaults int     `json:"storage_faults"`
	Percent       float64 `json:"percent"`
	ETASeconds    int     `json:"eta_seconds"`
	ProgressBar   string  `json:"progress_bar"`
	Text          string  `json:"text"`
}

// BatchSummary is emitted once when a batch stops
type BatchSummary struct {
	BatchID        string  `json:"batch_id"`
	ActorID        int64   `json:"actor_id"`
	Target         string  `json:"target"`
	Status         string  `json:"status"`
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Successful     int     `json:"successful"`
	Failed         int     `json:"failed"`
	StorageFaults  int     `json:"storage_faults"`
	SuccessRate    float64 `json:"success_rate"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	Text           string  `json:"text"`
}

// BatchProgressResponse is the latest snapshot of a batch for polling clients
type BatchProgressResponse struct {
	Progress *BatchProgress `json:"progress,omitempty"`
	Summary  *BatchSummary  `json:"summary,omitempty"`
	Done     bool           `json:"done"`
}
