package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/aleister1102/filesentry/internal/config"
	"github.com/aleister1102/filesentry/internal/errorwrapper"
	"github.com/aleister1102/filesentry/internal/models"

	"github.com/rs/zerolog"
)

const (
	defaultRetryDelay = 5 * time.Second
)

// changeNotification is the JSON body posted to the webhook for one
// recorded change event.
type changeNotification struct {
	Event     models.ChangeEvent `json:"event"`
	Source    string             `json:"source"`
	Timestamp time.Time          `json:"timestamp"`
}

// WebhookNotifier posts recorded change events to a configured webhook
// URL. An empty URL disables notifications entirely. Delivery is
// best-effort with bounded retries; a failed delivery never blocks or
// fails the reconciliation that produced the event.
type WebhookNotifier struct {
	cfg        config.NotificationConfig
	logger     zerolog.Logger
	httpClient *http.Client
	disabled   bool
}

// NewWebhookNotifier creates a new webhook notifier.
func NewWebhookNotifier(cfg config.NotificationConfig, logger zerolog.Logger) (*WebhookNotifier, error) {
	moduleLogger := logger.With().Str("module", "WebhookNotifier").Logger()

	if cfg.WebhookURL == "" {
		moduleLogger.Info().Msg("Webhook URL is empty, notifications disabled")
		return &WebhookNotifier{cfg: cfg, logger: moduleLogger, disabled: true}, nil
	}

	if _, err := url.ParseRequestURI(cfg.WebhookURL); err != nil {
		return nil, errorwrapper.WrapError(err, "invalid webhook URL")
	}

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultNotificationTimeoutSecs) * time.Second
	}

	return &WebhookNotifier{
		cfg:        cfg,
		logger:     moduleLogger,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// OnChangeEvent implements the reconciler event sink. Delivery runs in
// its own goroutine so the reconciliation path never blocks on the
// network.
func (wn *WebhookNotifier) OnChangeEvent(event models.ChangeEvent) {
	if wn.disabled {
		return
	}
	go func() {
		if err := wn.send(context.Background(), event); err != nil {
			wn.logger.Error().Err(err).
				Str("path", event.Path).
				Str("kind", event.Kind.String()).
				Msg("Webhook delivery failed after retries")
		}
	}()
}

func (wn *WebhookNotifier) send(ctx context.Context, event models.ChangeEvent) error {
	payload := changeNotification{
		Event:     event,
		Source:    "filesentry",
		Timestamp: time.Now(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errorwrapper.WrapError(err, "failed to marshal notification payload")
	}

	attempts := wn.cfg.RetryAttempts + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(defaultRetryDelay):
			}
		}

		lastErr = wn.post(ctx, body)
		if lastErr == nil {
			wn.logger.Debug().
				Str("path", event.Path).
				Str("kind", event.Kind.String()).
				Msg("Webhook notification delivered")
			return nil
		}
		wn.logger.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("Webhook delivery attempt failed")
	}
	return lastErr
}

func (wn *WebhookNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wn.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return errorwrapper.WrapError(err, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return errorwrapper.WrapError(err, "webhook request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorwrapper.NewError("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
