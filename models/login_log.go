package models

import (
	"time"
)

// LoginLog is an append-only audit entry of authentication events.
type LoginLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ActorID   *int64    `gorm:"index:idx_login_logs_actor_id" json:"actor_id,omitempty"`
	Phone     string    `gorm:"size:20;not null;index:idx_login_logs_phone" json:"phone"`
	Action    string    `gorm:"size:32;not null;index:idx_login_logs_action" json:"action"`
	IPAddress *string   `gorm:"size:64" json:"ip_address,omitempty"`
	Detail    *string   `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_login_logs_created_at" json:"created_at"`
}

func (LoginLog) TableName() string {
	return "login_logs"
}

// Login log actions
const (
	LoginActionCodeRequested  = "code_requested"
	LoginActionSuccess        = "login_success"
	LoginActionFailed         = "login_failed"
	LoginActionLogout         = "logout"
	LoginActionSessionExpired = "session_expired"
)

// LoginLogFilter represents filter criteria for login log queries
type LoginLogFilter struct {
	ID            *uint
	ActorID       *int64
	Phone         *string
	Action        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
