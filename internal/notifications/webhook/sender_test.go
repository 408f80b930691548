package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opsdesk/incident-desk/internal/domain"
	"github.com/opsdesk/incident-desk/internal/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_PostsJSONPayload(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(Config{})
	inc := domain.Incident{ID: "inc-1", InternalTicketNumber: "CY-123456-001"}

	err := sender.Send(context.Background(), notifications.Notification{
		To:       server.URL,
		Subject:  "[New Incident] CY-123456-001",
		Body:     "details",
		Incident: &inc,
	})
	require.NoError(t, err)

	assert.Equal(t, server.URL, received["to"])
	assert.Equal(t, "[New Incident] CY-123456-001", received["subject"])
	assert.Equal(t, "details", received["body"])
	incident, ok := received["incident"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "inc-1", incident["id"])
}

func TestSend_EmptyURLIsPermanent(t *testing.T) {
	sender := NewSender(Config{})

	err := sender.Send(context.Background(), notifications.Notification{})

	var permErr *PermanentError
	require.ErrorAs(t, err, &permErr)
	assert.False(t, permErr.IsRetryable())
}

func TestSend_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sender := NewSender(Config{})
	err := sender.Send(context.Background(), notifications.Notification{To: server.URL})

	var retryErr *RetryableError
	require.ErrorAs(t, err, &retryErr)
	assert.True(t, retryErr.IsRetryable())
}

func TestSend_NotFoundIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	sender := NewSender(Config{})
	err := sender.Send(context.Background(), notifications.Notification{To: server.URL})

	var permErr *PermanentError
	require.ErrorAs(t, err, &permErr)
}

func TestSend_TooManyRequestsIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	sender := NewSender(Config{})
	err := sender.Send(context.Background(), notifications.Notification{To: server.URL})

	var retryErr *RetryableError
	require.ErrorAs(t, err, &retryErr)
}

func TestMaskWebhookURL(t *testing.T) {
	long := "https://hooks.example.com/services/T0000000/B0000000/XXXXXXXXXXXXXXXXXXXXXXXX"
	masked := maskWebhookURL(long)

	assert.NotEqual(t, long, masked)
	assert.Contains(t, masked, "...")
	assert.Equal(t, "https://short", maskWebhookURL("https://short"))
}
