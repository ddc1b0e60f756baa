// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anshu-9837/Banning/app/dto"
	"github.com/anshu-9837/Banning/app/middleware"
	businessflow "github.com/anshu-9837/Banning/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 30 * time.Second

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "numeric":
		return err.Field() + " must contain only numbers"
	case "phone_format":
		return "Phone number must be a 10 digit Indian mobile number, optionally prefixed with +91"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// NewValidator returns a validator with the custom tags used by request DTOs
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone_format", func(fl validator.FieldLevel) bool {
		_, err := businessflow.NormalizePhone(fl.Field().String())
		return err == nil
	})
	return v
}

// baseHandler carries what every handler needs to answer a request
type baseHandler struct {
	validator *validator.Validate
	logger    *zap.Logger
}

func newBaseHandler(v *validator.Validate, logger *zap.Logger) baseHandler {
	if v == nil {
		v = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{validator: v, logger: logger}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	middleware.SetErrorCode(c, errorCode)
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// bind decodes and validates the JSON body into req, writing the error response itself.
// It reports whether the handler may continue.
func (h *baseHandler) bind(c fiber.Ctx, req any) (bool, error) {
	if err := c.Bind().JSON(req); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}
		messages := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			messages = append(messages, getValidationErrorMessage(fe))
		}
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
	}
	return true, nil
}

// actor returns the authenticated actor id or writes a 401
func (h *baseHandler) actor(c fiber.Ctx) (int64, error) {
	actorID, ok := middleware.GetActorIDFromContext(c)
	if !ok {
		return 0, h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}
	return actorID, nil
}

// requestContext derives a bounded context carrying the request id
func (h *baseHandler) requestContext(c fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context(), defaultRequestTimeout)
	if requestID := c.Get(businessflow.RequestIDKey); requestID != "" {
		ctx = context.WithValue(ctx, businessflow.RequestIDKey, requestID)
	}
	return ctx, cancel
}

func (h *baseHandler) clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get(businessflow.RequestIDKey))
	return metadata
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var businessErrorMappings = []errorMapping{
	{businessflow.ErrInvalidFormat, fiber.StatusBadRequest, "INVALID_PHONE", "Invalid phone number format"},
	{businessflow.ErrPhoneNotApproved, fiber.StatusForbidden, "PHONE_NOT_APPROVED", "Phone number is not an approved operator"},
	{businessflow.ErrNoCodeFound, fiber.StatusBadRequest, "NO_CODE_FOUND", "No login code was requested for this phone"},
	{businessflow.ErrExpired, fiber.StatusBadRequest, "CODE_EXPIRED", "Login code has expired"},
	{businessflow.ErrMaxAttemptsExceeded, fiber.StatusTooManyRequests, "MAX_ATTEMPTS_EXCEEDED", "Too many attempts, request a new code"},
	{businessflow.ErrInvalidCode, fiber.StatusBadRequest, "INVALID_CODE", "Invalid login code"},
	{businessflow.ErrOperatorNotFound, fiber.StatusNotFound, "OPERATOR_NOT_FOUND", "Operator not found"},
	{businessflow.ErrOperatorExists, fiber.StatusConflict, "OPERATOR_EXISTS", "Operator already exists"},
	{businessflow.ErrNotLoggedIn, fiber.StatusUnauthorized, "NOT_LOGGED_IN", "Please log in first"},
	{businessflow.ErrInsufficientTier, fiber.StatusForbidden, "INSUFFICIENT_TIER", "Your tier does not allow this change"},
	{businessflow.ErrInvalidTier, fiber.StatusBadRequest, "INVALID_TIER", "Invalid tier"},
	{businessflow.ErrInvalidStatus, fiber.StatusBadRequest, "INVALID_STATUS", "Invalid status"},
	{businessflow.ErrNothingToUpdate, fiber.StatusBadRequest, "NOTHING_TO_UPDATE", "Nothing to update"},
	{businessflow.ErrInvalidLanguage, fiber.StatusBadRequest, "INVALID_LANGUAGE", "Unsupported language"},
	{businessflow.ErrInvalidReportType, fiber.StatusBadRequest, "INVALID_REPORT_TYPE", "Invalid report type"},
	{businessflow.ErrInvalidCategory, fiber.StatusBadRequest, "INVALID_CATEGORY", "Invalid report category"},
	{businessflow.ErrInvalidTarget, fiber.StatusBadRequest, "INVALID_TARGET", "Invalid report target"},
	{businessflow.ErrInvalidReportText, fiber.StatusBadRequest, "INVALID_REPORT_TEXT", "Report text is too long"},
	{businessflow.ErrDailyLimitReached, fiber.StatusTooManyRequests, "DAILY_LIMIT_REACHED", "Daily report limit reached"},
	{businessflow.ErrInvalidBatchCount, fiber.StatusBadRequest, "INVALID_BATCH_COUNT", "Invalid batch count"},
	{businessflow.ErrInvalidBatchDelay, fiber.StatusBadRequest, "INVALID_BATCH_DELAY", "Invalid batch delay"},
	{businessflow.ErrBatchNotFound, fiber.StatusNotFound, "BATCH_NOT_FOUND", "Batch not found"},
	{businessflow.ErrBatchLocked, fiber.StatusConflict, "BATCH_LOCKED", "Batch is being processed"},
	{businessflow.ErrBatchNotRunning, fiber.StatusConflict, "BATCH_NOT_RUNNING", "Batch is not running"},
}

// businessError maps a flow error to a response; unknown errors become a 500 with fallbackCode
func (h *baseHandler) businessError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	for _, m := range businessErrorMappings {
		if errors.Is(err, m.target) {
			message := m.message
			var be *businessflow.BusinessError
			if m.status == fiber.StatusBadRequest && errors.As(err, &be) && be.Message != "" {
				message = be.Message
			}
			return h.ErrorResponse(c, m.status, message, m.code, nil)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return h.ErrorResponse(c, fiber.StatusGatewayTimeout, "Request timed out", "TIMEOUT", nil)
	}

	h.logger.Error(fallbackMessage,
		zap.String("path", c.Path()),
		zap.String("request_id", c.Get(businessflow.RequestIDKey)),
		zap.Error(err))
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}
