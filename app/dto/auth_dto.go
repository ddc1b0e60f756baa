// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"
)

// RequestCodeRequest asks for a login code to be sent to an allowlisted phone
type RequestCodeRequest struct {
	Phone string `json:"phone" validate:"required,phone_format" example:"9876543210"`
}

// RequestCodeResponse describes the code that was issued
type RequestCodeResponse struct {
	MaskedPhone string    `json:"masked_phone" example:"+9198765****"`
	ExpiresAt   time.Time `json:"expires_at"`
	ExpiresIn   int       `json:"expires_in" example:"300"`
}

// VerifyCodeRequest completes a login for a chat actor
type VerifyCodeRequest struct {
	Phone     string `json:"phone" validate:"required,phone_format" example:"+919876543210"`
	Code      string `json:"code" validate:"required,len=6,numeric" example:"123456"`
	ActorID   int64  `json:"actor_id" validate:"required" example:"123456789"`
	ActorName string `json:"actor_name" validate:"omitempty,max=255" example:"alice"`
}

// VerifyCodeResponse is returned after a successful login
type VerifyCodeResponse struct {
	DisplayName  string    `json:"display_name" example:"Alice"`
	Tier         string    `json:"tier" example:"admin"`
	MaskedPhone  string    `json:"masked_phone" example:"+9198765****"`
	SessionToken string    `json:"session_token" example:"SESS202601011200001234"`
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type" example:"Bearer"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LogoutResponse tells whether a session was actually closed
type LogoutResponse struct {
	LoggedOut bool `json:"logged_out"`
}

// SessionInfo describes the caller's active session
type SessionInfo struct {
	ActorID      int64     `json:"actor_id"`
	ActorName    string    `json:"actor_name"`
	DisplayName  string    `json:"display_name"`
	Tier         string    `json:"tier"`
	Language     string    `json:"language"`
	MaskedPhone  string    `json:"masked_phone"`
	LoginAt      time.Time `json:"login_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// UpdateLanguageRequest changes the session language
type UpdateLanguageRequest struct {
	Language string `json:"language" validate:"required,oneof=hi en" example:"en"`
}
