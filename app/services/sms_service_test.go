package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anshu-9837/Banning/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSServiceSendsToGateway(t *testing.T) {
	var got []SMSRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/send", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode([]SMSResponse{{MessageID: 1, Recipient: got[0].Recipient, Status: "ACCEPTED", StatusCode: 200}})
	}))
	defer srv.Close()

	svc := NewSMSService(&config.SMSConfig{ProviderDomain: srv.URL, APIKey: "key", SourceNumber: "5000", Timeout: time.Second})
	require.NoError(t, svc.SendSMS(context.Background(), "+919876543210", "hello"))

	require.Len(t, got, 1)
	assert.Equal(t, "919876543210", got[0].Recipient)
	assert.Equal(t, "5000", got[0].SrcNum)
}

func TestSMSServiceRejectedDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]SMSResponse{{Recipient: "919876543210", Status: "REJECTED", StatusCode: 400}})
	}))
	defer srv.Close()

	svc := NewSMSService(&config.SMSConfig{ProviderDomain: srv.URL, Timeout: time.Second})
	assert.Error(t, svc.SendSMS(context.Background(), "+919876543210", "hello"))
}

func TestNotificationServiceSendLoginCode(t *testing.T) {
	mock := NewMockSMSService(nil)
	svc := NewNotificationService(mock)

	require.NoError(t, svc.SendLoginCode(context.Background(), "+919876543210", "123456", 5*time.Minute))
	msg, ok := mock.LastMessageTo("+919876543210")
	require.True(t, ok)
	assert.Equal(t, "Your login code is 123456. It expires in 5 minutes.", msg.Message)

	assert.Error(t, svc.SendLoginCode(context.Background(), "9876543210", "123456", 5*time.Minute))
	assert.Len(t, mock.GetSentMessages(), 1)
}
