package handlers

import (
	"github.com/anshu-9837/Banning/app/dto"
	businessflow "github.com/anshu-9837/Banning/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	RequestCode(c fiber.Ctx) error
	Verify(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	Me(c fiber.Ctx) error
	SetLanguage(c fiber.Ctx) error
}

// AuthHandler handles login and session requests
type AuthHandler struct {
	baseHandler
	authFlow businessflow.AuthFlow
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authFlow businessflow.AuthFlow, v *validator.Validate, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(v, logger),
		authFlow:    authFlow,
	}
}

// RequestCode sends a login code to an approved operator phone
func (h *AuthHandler) RequestCode(c fiber.Ctx) error {
	var req dto.RequestCodeRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.authFlow.RequestCode(ctx, &req, h.clientMetadata(c))
	if err != nil {
		return h.businessError(c, err, "Failed to send login code", "CODE_REQUEST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login code sent", result)
}

// Verify checks a login code and opens a session for the chat actor
func (h *AuthHandler) Verify(c fiber.Ctx) error {
	var req dto.VerifyCodeRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.authFlow.VerifyAndLogin(ctx, &req, h.clientMetadata(c))
	if err != nil {
		return h.businessError(c, err, "Login failed", "LOGIN_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// Logout ends the caller's session
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	actorID, err := h.actor(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.authFlow.Logout(ctx, actorID, h.clientMetadata(c))
	if err != nil {
		return h.businessError(c, err, "Logout failed", "LOGOUT_FAILED")
	}

	message := "Logged out"
	if !result.LoggedOut {
		message = "No active session"
	}
	return h.SuccessResponse(c, fiber.StatusOK, message, result)
}

// Me returns the caller's session
func (h *AuthHandler) Me(c fiber.Ctx) error {
	actorID, err := h.actor(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	session, err := h.authFlow.CurrentSession(ctx, actorID)
	if err != nil {
		return h.businessError(c, err, "Failed to load session", "SESSION_LOOKUP_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Session retrieved", businessflow.ToSessionInfo(*session))
}

// SetLanguage switches the session language
func (h *AuthHandler) SetLanguage(c fiber.Ctx) error {
	actorID, err := h.actor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateLanguageRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	info, err := h.authFlow.SetLanguage(ctx, actorID, &req)
	if err != nil {
		return h.businessError(c, err, "Failed to update language", "LANGUAGE_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Language updated", info)
}
