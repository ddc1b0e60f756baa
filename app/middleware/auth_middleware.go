// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/anshu-9837/Banning/app/dto"
	"github.com/anshu-9837/Banning/app/services"
	"github.com/anshu-9837/Banning/models"
	"github.com/gofiber/fiber/v3"
)

// Locals keys set by Authenticate
const (
	LocalActorID     = "actor_id"
	LocalSession     = "session"
	LocalTokenClaims = "token_claims"
	LocalRequestID   = "request_id"
)

// SessionResolver resolves the session a bearer token is bound to
type SessionResolver interface {
	SessionByToken(ctx context.Context, sessionToken string) (*models.Session, error)
}

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
	sessions     SessionResolver
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService, sessions SessionResolver) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		sessions:     sessions,
	}
}

func unauthorized(c fiber.Ctx, code, message string) error {
	SetErrorCode(c, code)
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// Authenticate validates the bearer token and requires the session it names to still be active
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "MISSING_AUTHORIZATION_HEADER", "Authorization header is required")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "INVALID_AUTHORIZATION_FORMAT", "Invalid authorization header format. Expected 'Bearer <token>'")
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return unauthorized(c, "MISSING_ACCESS_TOKEN", "Access token is required")
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				return unauthorized(c, "TOKEN_EXPIRED", "Access token has expired")
			case errors.Is(err, services.ErrTokenInvalid):
				return unauthorized(c, "TOKEN_INVALID", "Invalid access token")
			default:
				return unauthorized(c, "TOKEN_VALIDATION_FAILED", "Token validation failed")
			}
		}

		// a logout, a newer login or idle expiry ends the session the token names
		session, err := m.sessions.SessionByToken(c.Context(), claims.SessionToken)
		if err != nil {
			return unauthorized(c, "SESSION_EXPIRED", "Session has ended, please log in again")
		}
		if session.ActorID != claims.ActorID {
			return unauthorized(c, "TOKEN_INVALID", "Invalid access token")
		}

		c.Locals(LocalActorID, claims.ActorID)
		c.Locals(LocalSession, session)
		c.Locals(LocalTokenClaims, claims)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals(LocalRequestID, requestID)
		}

		return c.Next()
	}
}

// GetActorIDFromContext extracts the authenticated actor id from the request context
func GetActorIDFromContext(c fiber.Ctx) (int64, bool) {
	actorID, ok := c.Locals(LocalActorID).(int64)
	return actorID, ok && actorID != 0
}

// GetSessionFromContext extracts the authenticated session from the request context
func GetSessionFromContext(c fiber.Ctx) (*models.Session, bool) {
	session, ok := c.Locals(LocalSession).(*models.Session)
	return session, ok
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals(LocalTokenClaims).(*services.TokenClaims)
	return claims, ok
}

// RequireAuth ensures Authenticate ran for this request
func RequireAuth(c fiber.Ctx) error {
	if _, ok := GetActorIDFromContext(c); !ok {
		return unauthorized(c, "AUTHENTICATION_REQUIRED", "Authentication required")
	}
	return nil
}
