package notifier_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aleister1102/filesentry/internal/config"
	"github.com/aleister1102/filesentry/internal/models"
	"github.com/aleister1102/filesentry/internal/notifier"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier_DeliversEvent(t *testing.T) {
	received := make(chan map[string]any, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		received <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.NotificationConfig{WebhookURL: server.URL, TimeoutSecs: 5}
	wn, err := notifier.NewWebhookNotifier(cfg, zerolog.Nop())
	require.NoError(t, err)

	event := models.NewChangeEvent("/data/report.txt", models.ChangeModified, "a1b2", "c3d4", 50)
	wn.OnChangeEvent(event)

	select {
	case body := <-received:
		assert.Equal(t, "filesentry", body["source"])
		payload, ok := body["event"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "/data/report.txt", payload["path"])
		assert.Equal(t, "modified", payload["kind"])
	case <-time.After(3 * time.Second):
		t.Fatal("webhook was never called")
	}
}

func TestWebhookNotifier_DisabledWhenURLEmpty(t *testing.T) {
	wn, err := notifier.NewWebhookNotifier(config.NotificationConfig{}, zerolog.Nop())
	require.NoError(t, err)

	// Must be a silent no-op, not a panic or an error log storm.
	wn.OnChangeEvent(models.NewChangeEvent("/data/a.txt", models.ChangeCreated, "", "h1", 1))
}

func TestWebhookNotifier_InvalidURLRejected(t *testing.T) {
	_, err := notifier.NewWebhookNotifier(config.NotificationConfig{WebhookURL: "not a url"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestWebhookNotifier_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.NotificationConfig{WebhookURL: server.URL, TimeoutSecs: 5, RetryAttempts: 2}
	wn, err := notifier.NewWebhookNotifier(cfg, zerolog.Nop())
	require.NoError(t, err)

	wn.OnChangeEvent(models.NewChangeEvent("/data/a.txt", models.ChangeCreated, "", "h1", 1))

	deadline := time.Now().Add(10 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(2), "delivery should be retried after a 5xx")
}
