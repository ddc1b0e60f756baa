// Package utils provides utility functions for the application.
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
)

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// RandomDigits returns n decimal digits from crypto/rand.
func RandomDigits(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	lo := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n-1)), nil)
	hi := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	span := new(big.Int).Sub(hi, lo)
	v, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return v.Add(v, lo).String(), nil
}

// RandomHex returns 2*n lowercase hex characters.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Percent returns part/whole*100, or 0 when whole is zero.
func Percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// FormatPercent renders a percentage with one decimal, e.g. "33.3%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
