package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		s, err := RandomDigits(6)
		require.NoError(t, err)
		require.Len(t, s, 6)
		assert.NotEqual(t, byte('0'), s[0])
	}
}

func TestRandomHex(t *testing.T) {
	s, err := RandomHex(3)
	require.NoError(t, err)
	assert.Len(t, s, 6)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(3, 0))
	assert.InDelta(t, 33.333, Percent(1, 3), 0.001)
	assert.Equal(t, 100.0, Percent(5, 5))
	assert.Equal(t, "33.3%", FormatPercent(Percent(1, 3)))
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 66.67, RoundTo(66.6666, 2))
	assert.Equal(t, 50.0, RoundTo(50, 2))
}

func TestStatDateAndIDTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 4, 23, 5, 6, 0, time.UTC)
	assert.Equal(t, "2026-03-04", StatDate(ts))
	assert.Equal(t, "20260304230506", IDTimestamp(ts))
}
