// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowPtr returns a pointer to the current time in UTC
func UTCNowPtr() *time.Time {
	now := UTCNow()
	return &now
}

// UTCNowAdd returns the current UTC time plus the given duration
func UTCNowAdd(d time.Duration) time.Time {
	return UTCNow().Add(d)
}

// IsExpired checks if the given time is in the past (expired)
func IsExpired(t time.Time) bool {
	return UTCNow().After(t)
}

// StatDate returns the calendar date of t in UTC, formatted for daily statistics.
func StatDate(t time.Time) string {
	return t.UTC().Format(StatDateLayout)
}

// TodayStatDate returns today's statistics date.
func TodayStatDate() string {
	return StatDate(UTCNow())
}

// IDTimestamp formats t for embedding in identifiers.
func IDTimestamp(t time.Time) string {
	return t.UTC().Format(IDTimestampLayout)
}
