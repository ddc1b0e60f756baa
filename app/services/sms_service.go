// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anshu-9837/Banning/config"
	"github.com/anshu-9837/Banning/utils"
	"go.uber.org/zap"
)

// SMSService handles SMS sending operations
type SMSService interface {
	SendSMS(ctx context.Context, recipient, message string) error
}

// SMSServiceImpl sends messages through an HTTP SMS gateway
type SMSServiceImpl struct {
	config  *config.SMSConfig
	client  *http.Client
	baseURL string
}

// SMSRequest represents the request payload for the SMS gateway
type SMSRequest struct {
	SrcNum     string `json:"srcNum"`
	Recipient  string `json:"recipient"` // digits only, country code first
	Body       string `json:"body"`
	RetryCount int    `json:"retryCount"`
}

// SMSResponse represents one message result from the SMS gateway
type SMSResponse struct {
	MessageID  int64  `json:"messageId"`
	Recipient  string `json:"recipient"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
}

// NewSMSService creates a new SMS service instance
func NewSMSService(cfg *config.SMSConfig) SMSService {
	base := cfg.ProviderDomain
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &SMSServiceImpl{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(base, "/"),
	}
}

// SendSMS sends a single message
func (s *SMSServiceImpl) SendSMS(ctx context.Context, recipient, message string) error {
	requestBody, err := json.Marshal([]SMSRequest{{
		SrcNum:     s.config.SourceNumber,
		Recipient:  strings.TrimPrefix(recipient, "+"),
		Body:       message,
		RetryCount: s.config.RetryCount,
	}})
	if err != nil {
		return fmt.Errorf("failed to marshal SMS request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/send", bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("SMS gateway returned HTTP %d", resp.StatusCode)
	}

	var results []SMSResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return fmt.Errorf("failed to decode SMS response: %w", err)
	}
	for _, r := range results {
		if r.StatusCode != http.StatusOK || r.Status != "ACCEPTED" {
			return fmt.Errorf("SMS delivery failed for %s: %s (%d)", r.Recipient, r.Status, r.StatusCode)
		}
	}
	return nil
}

// MockSMSService logs messages instead of sending them
type MockSMSService struct {
	logger *zap.Logger

	mu           sync.Mutex
	sentMessages []MockSMSMessage
}

// MockSMSMessage represents a mock SMS message
type MockSMSMessage struct {
	Recipient string
	Message   string
	SentAt    time.Time
}

// NewMockSMSService creates a new mock SMS service
func NewMockSMSService(logger *zap.Logger) *MockSMSService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockSMSService{logger: logger}
}

// SendSMS records the message and logs it
func (m *MockSMSService) SendSMS(ctx context.Context, recipient, message string) error {
	m.mu.Lock()
	m.sentMessages = append(m.sentMessages, MockSMSMessage{
		Recipient: recipient,
		Message:   message,
		SentAt:    utils.UTCNow(),
	})
	m.mu.Unlock()

	m.logger.Info("mock SMS sent", zap.String("recipient", recipient), zap.String("message", message))
	return nil
}

// GetSentMessages returns a copy of all sent mock messages
func (m *MockSMSService) GetSentMessages() []MockSMSMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockSMSMessage, len(m.sentMessages))
	copy(out, m.sentMessages)
	return out
}

// LastMessageTo returns the latest message sent to recipient
func (m *MockSMSService) LastMessageTo(recipient string) (MockSMSMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sentMessages) - 1; i >= 0; i-- {
		if m.sentMessages[i].Recipient == recipient {
			return m.sentMessages[i], true
		}
	}
	return MockSMSMessage{}, false
}

// ClearSentMessages clears the sent messages list
func (m *MockSMSService) ClearSentMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentMessages = nil
}
