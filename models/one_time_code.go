package models

import (
	"time"
)

// OneTimeCode is a hashed login code issued to an operator phone.
// Only the most recent row per phone is ever verified.
type OneTimeCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Phone     string    `gorm:"size:20;not null;index:idx_one_time_codes_phone_created,priority:1" json:"phone"`
	CodeHash  string    `gorm:"size:255;not null" json:"-"`
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	CreatedAt time.Time `gorm:"not null;index:idx_one_time_codes_phone_created,priority:2" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index:idx_one_time_codes_expires_at" json:"expires_at"`
}

func (OneTimeCode) TableName() string {
	return "one_time_codes"
}

// IsExpiredAt reports whether the code is past its expiry at now.
func (c *OneTimeCode) IsExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// CanAttempt reports whether one more guess is allowed under maxAttempts.
func (c *OneTimeCode) CanAttempt(maxAttempts int) bool {
	return c.Attempts < maxAttempts
}

// OneTimeCodeFilter represents filter criteria for one-time code queries
type OneTimeCodeFilter struct {
	ID            *uint
	Phone         *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	ExpiresBefore *time.Time
}
