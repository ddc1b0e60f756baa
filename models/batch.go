package models

import (
	"time"
)

// Batch tracks a sequence of N reports against one target.
type Batch struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	BatchID           string     `gorm:"size:64;not null;uniqueIndex:idx_batches_batch_id" json:"batch_id"`
	ActorID           int64      `gorm:"not null;index:idx_batches_actor_id" json:"actor_id"`
	ActorName         string     `gorm:"size:255" json:"actor_name"`
	Language          string     `gorm:"size:5;not null;default:hi" json:"language"`
	Target            string     `gorm:"size:512;not null" json:"target"`
	ReportType        string     `gorm:"size:20;not null" json:"report_type"`
	Category          string     `gorm:"size:64;not null" json:"category"`
	ReportText        string     `gorm:"type:text" json:"report_text"`
	TotalCount        int        `gorm:"not null" json:"total_count"`
	CompletedCount    int        `gorm:"not null;default:0" json:"completed_count"`
	SuccessfulCount   int        `gorm:"not null;default:0" json:"successful_count"`
	FailedCount       int        `gorm:"not null;default:0" json:"failed_count"`
	StorageFaultCount int        `gorm:"not null;default:0" json:"storage_fault_count"`
	DelaySeconds      int        `gorm:"not null;default:0" json:"delay_seconds"`
	Status            string     `gorm:"size:20;not null;index:idx_batches_status" json:"status"`
	StartedAt         time.Time  `gorm:"not null" json:"started_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
}

func (Batch) TableName() string {
	return "batches"
}

// Batch status constants
const (
	BatchStatusRunning   = "running"
	BatchStatusCompleted = "completed"
	BatchStatusCancelled = "cancelled"
)

func (b *Batch) IsRunning() bool {
	return b.Status == BatchStatusRunning
}

// Remaining returns the number of items not yet executed.
func (b *Batch) Remaining() int {
	if r := b.TotalCount - b.CompletedCount; r > 0 {
		return r
	}
	return 0
}

// BatchFilter represents filter criteria for batch queries
type BatchFilter struct {
	ID      *uint
	BatchID *string
	ActorID *int64
	Status  *string
}
