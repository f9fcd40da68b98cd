package config

// NotificationConfig defines configuration for webhook notifications
// about recorded change events.
type NotificationConfig struct {
	WebhookURL    string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty" validate:"omitempty,url"`
	TimeoutSecs   int    `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"omitempty,min=1"`
	RetryAttempts int    `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty" validate:"omitempty,min=0"`
}

// NewDefaultNotificationConfig creates default notification configuration
func NewDefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		WebhookURL:    "",
		TimeoutSecs:   DefaultNotificationTimeoutSecs,
		RetryAttempts: DefaultNotificationRetries,
	}
}
