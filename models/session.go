package models

import (
	"time"

	"github.com/anshu-9837/Banning/utils"
)

// Session binds a chat actor to an operator after a successful login.
type Session struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Phone        string    `gorm:"size:20;not null;index:idx_sessions_phone" json:"phone"`
	ActorID      int64     `gorm:"not null;index:idx_sessions_actor_id" json:"actor_id"`
	ActorName    string    `gorm:"size:255" json:"actor_name"`
	DisplayName  string    `gorm:"size:255;not null" json:"display_name"`
	Tier         string    `gorm:"size:20;not null" json:"tier"`
	Language     string    `gorm:"size:5;not null;default:hi" json:"language"`
	SessionToken string    `gorm:"size:64;not null;uniqueIndex:idx_sessions_session_token" json:"-"`
	IsActive     *bool     `gorm:"not null;default:true;index:idx_sessions_is_active" json:"is_active"`
	LoginAt      time.Time `gorm:"not null" json:"login_at"`
	LastActiveAt time.Time `gorm:"not null;index:idx_sessions_last_active" json:"last_active_at"`
}

func (Session) TableName() string {
	return "sessions"
}

// Session languages
const (
	LanguageHindi   = "hi"
	LanguageEnglish = "en"
)

// IsValidLanguage reports whether lang is a supported session language.
func IsValidLanguage(lang string) bool {
	return lang == LanguageHindi || lang == LanguageEnglish
}

// IsIdle reports whether the session has been inactive longer than timeout at now.
func (s *Session) IsIdle(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActiveAt) > timeout
}

func (s *Session) IsValid(now time.Time, timeout time.Duration) bool {
	return utils.IsTrue(s.IsActive) && !s.IsIdle(now, timeout)
}

// SessionFilter represents filter criteria for session queries
type SessionFilter struct {
	ID           *uint
	Phone        *string
	ActorID      *int64
	SessionToken *string
	IsActive     *bool
	ActiveBefore *time.Time
	LoginAfter   *time.Time
}
