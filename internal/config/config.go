package config

const (
	// Storage Defaults
	DefaultStorageDatabasePath     = "data/filesentry.db"
	DefaultStorageArchivePath      = "data/archive"
	DefaultStorageRetentionDays    = 30
	DefaultStorageCompressionCodec = "zstd"

	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3

	// Monitor Defaults
	DefaultHashAlgorithm       = "sha256"
	DefaultScanIntervalMinutes = 60
	DefaultMaxConcurrentProbes = 4

	// API Defaults
	DefaultAPIListenAddress = ":8080"

	// Notification Defaults
	DefaultNotificationTimeoutSecs = 20
	DefaultNotificationRetries     = 2

	// Resource Limiter Defaults
	DefaultMaxMemoryMB          = 1024
	DefaultMaxCPUPercent        = 80.0
	DefaultLimiterCheckInterval = 5
)

// GlobalConfig aggregates all component configurations. It is loaded
// once at startup and passed explicitly to whichever component needs it.
type GlobalConfig struct {
	LogConfig             LogConfig             `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	MonitorConfig         MonitorConfig         `json:"monitor_config,omitempty" yaml:"monitor_config,omitempty"`
	StorageConfig         StorageConfig         `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
	APIConfig             APIConfig             `json:"api_config,omitempty" yaml:"api_config,omitempty"`
	NotificationConfig    NotificationConfig    `json:"notification_config,omitempty" yaml:"notification_config,omitempty"`
	ResourceLimiterConfig ResourceLimiterConfig `json:"resource_limiter_config,omitempty" yaml:"resource_limiter_config,omitempty"`
}

// NewDefaultGlobalConfig creates a GlobalConfig populated with defaults.
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		LogConfig:             NewDefaultLogConfig(),
		MonitorConfig:         NewDefaultMonitorConfig(),
		StorageConfig:         NewDefaultStorageConfig(),
		APIConfig:             NewDefaultAPIConfig(),
		NotificationConfig:    NewDefaultNotificationConfig(),
		ResourceLimiterConfig: NewDefaultResourceLimiterConfig(),
	}
}
