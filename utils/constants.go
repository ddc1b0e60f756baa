package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for bearer tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// SessionTimeout is the default idle timeout of an operator session (24 hours)
	SessionTimeout = 24 * time.Hour

	// OTPExpiry is the time-to-live for one-time codes (5 minutes)
	OTPExpiry = 5 * time.Minute

	// OTPMaxAttempts is the number of wrong guesses allowed per code
	OTPMaxAttempts = 3
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Report limits
const (
	MaxReportsPerDay   = 50
	MaxBatchCount      = 25
	MaxBatchDelay      = 10
	SuccessProbability = 0.95
	HistoryLimit       = 10
)

// StatDateLayout is the calendar-date layout of daily statistics.
const StatDateLayout = "2006-01-02"

// IDTimestampLayout is the timestamp embedded in report, batch and session identifiers.
const IDTimestampLayout = "20060102150405"
