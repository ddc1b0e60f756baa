package businessflow

import (
	"strings"
)

const (
	nationalCode    = "91"
	maskedPrefixLen = 8
)

// NormalizePhone converts operator input into the canonical +91XXXXXXXXXX form.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 10 && strings.ContainsRune("6789", rune(digits[0])):
		return "+" + nationalCode + digits, nil
	case len(digits) == 12 && strings.HasPrefix(digits, nationalCode):
		return "+" + digits, nil
	default:
		return "", ErrInvalidFormat
	}
}

// MaskPhone reveals only the first eight characters of a canonical phone.
func MaskPhone(phone string) string {
	if len(phone) <= maskedPrefixLen {
		return phone + "****"
	}
	return phone[:maskedPrefixLen] + "****"
}
