// Package businessflow contains the core business logic and use cases of the report bot
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Authentication errors
	ErrInvalidFormat       = errors.New("invalid phone number format")
	ErrPhoneNotApproved    = errors.New("phone number is not an approved operator")
	ErrNoCodeFound         = errors.New("no login code found")
	ErrExpired             = errors.New("login code has expired")
	ErrMaxAttemptsExceeded = errors.New("maximum login attempts exceeded")
	ErrInvalidCode         = errors.New("invalid login code")
	ErrOperatorNotFound    = errors.New("operator not found")
	ErrNotLoggedIn         = errors.New("no active session")
	ErrInvalidLanguage     = errors.New("unsupported language")

	// Operator management errors
	ErrInsufficientTier = errors.New("insufficient privilege tier")
	ErrInvalidTier      = errors.New("invalid privilege tier")
	ErrInvalidStatus    = errors.New("invalid operator status")
	ErrOperatorExists   = errors.New("operator already exists")
	ErrNothingToUpdate  = errors.New("at least one field must be provided for update")

	// Report errors
	ErrInvalidReportType = errors.New("invalid report type")
	ErrInvalidCategory   = errors.New("invalid report category")
	ErrInvalidTarget     = errors.New("invalid report target")
	ErrInvalidReportText = errors.New("report text is too long")
	ErrDailyLimitReached = errors.New("daily report limit reached")

	// Batch errors
	ErrInvalidBatchCount = errors.New("invalid batch count")
	ErrInvalidBatchDelay = errors.New("invalid batch delay")
	ErrBatchNotFound     = errors.New("batch not found")
	ErrBatchLocked       = errors.New("batch is being processed elsewhere")
	ErrBatchNotRunning   = errors.New("batch is not running")

	// Infrastructure errors
	ErrStorageFault = errors.New("storage fault")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// storageFault marks err as a persistence failure while keeping the cause in the chain.
func storageFault(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFault, err)
}

func IsInvalidFormat(err error) bool {
	return errors.Is(err, ErrInvalidFormat)
}

func IsPhoneNotApproved(err error) bool {
	return errors.Is(err, ErrPhoneNotApproved)
}

func IsNoCodeFound(err error) bool {
	return errors.Is(err, ErrNoCodeFound)
}

func IsExpired(err error) bool {
	return errors.Is(err, ErrExpired)
}

func IsMaxAttemptsExceeded(err error) bool {
	return errors.Is(err, ErrMaxAttemptsExceeded)
}

func IsInvalidCode(err error) bool {
	return errors.Is(err, ErrInvalidCode)
}

func IsOperatorNotFound(err error) bool {
	return errors.Is(err, ErrOperatorNotFound)
}

func IsNotLoggedIn(err error) bool {
	return errors.Is(err, ErrNotLoggedIn)
}

func IsStorageFault(err error) bool {
	return errors.Is(err, ErrStorageFault)
}

func IsInsufficientTier(err error) bool {
	return errors.Is(err, ErrInsufficientTier)
}

func IsDailyLimitReached(err error) bool {
	return errors.Is(err, ErrDailyLimitReached)
}

func IsBatchNotFound(err error) bool {
	return errors.Is(err, ErrBatchNotFound)
}

func IsBatchLocked(err error) bool {
	return errors.Is(err, ErrBatchLocked)
}
