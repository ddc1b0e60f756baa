// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"fmt"
	"time"
)

// NotificationService delivers operator-facing messages
type NotificationService interface {
	SendLoginCode(ctx context.Context, phone, code string, validFor time.Duration) error
}

// NotificationServiceImpl implements NotificationService
type NotificationServiceImpl struct {
	sms SMSService
}

// NewNotificationService creates a new notification service
func NewNotificationService(sms SMSService) NotificationService {
	return &NotificationServiceImpl{sms: sms}
}

// LoginCodeMessage renders the text carrying a login code.
func LoginCodeMessage(code string, validFor time.Duration) string {
	return fmt.Sprintf("Your login code is %s. It expires in %d minutes.", code, int(validFor.Minutes()))
}

// SendLoginCode sends a one-time login code to phone
func (s *NotificationServiceImpl) SendLoginCode(ctx context.Context, phone, code string, validFor time.Duration) error {
	if s.sms == nil {
		return fmt.Errorf("SMS provider not configured")
	}
	if len(phone) != 13 || phone[:3] != "+91" {
		return fmt.Errorf("invalid phone number format: %s", phone)
	}
	return s.sms.SendSMS(ctx, phone, LoginCodeMessage(code, validFor))
}
