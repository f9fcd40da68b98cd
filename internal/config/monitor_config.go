package config

// MonitoredPathConfig describes one root to monitor.
type MonitoredPathConfig struct {
	Path      string `json:"path" yaml:"path" validate:"required"`
	Recursive bool   `json:"recursive" yaml:"recursive"`
}

// MonitorConfig defines configuration for the integrity monitoring engine.
type MonitorConfig struct {
	MonitoredPaths      []MonitoredPathConfig `json:"monitored_paths,omitempty" yaml:"monitored_paths,omitempty" validate:"required,min=1,dive"`
	ExcludedPatterns    []string              `json:"excluded_patterns,omitempty" yaml:"excluded_patterns,omitempty"`
	HashAlgorithm       string                `json:"hash_algorithm,omitempty" yaml:"hash_algorithm,omitempty" validate:"omitempty,hashalgo"`
	ScanIntervalMinutes int                   `json:"scan_interval_minutes,omitempty" yaml:"scan_interval_minutes,omitempty" validate:"omitempty,min=1"`
	MaxConcurrentProbes int                   `json:"max_concurrent_probes,omitempty" yaml:"max_concurrent_probes,omitempty" validate:"omitempty,min=1"`
	LiveMonitoring      bool                  `json:"live_monitoring" yaml:"live_monitoring"`
	ScanOnStart         bool                  `json:"scan_on_start" yaml:"scan_on_start"`
}

// NewDefaultMonitorConfig creates default monitor configuration
func NewDefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		MonitoredPaths:      []MonitoredPathConfig{},
		ExcludedPatterns:    []string{},
		HashAlgorithm:       DefaultHashAlgorithm,
		ScanIntervalMinutes: DefaultScanIntervalMinutes,
		MaxConcurrentProbes: DefaultMaxConcurrentProbes,
		LiveMonitoring:      true,
		ScanOnStart:         true,
	}
}

// Roots returns the configured root paths.
func (mc *MonitorConfig) Roots() []string {
	roots := make([]string, 0, len(mc.MonitoredPaths))
	for _, mp := range mc.MonitoredPaths {
		roots = append(roots, mp.Path)
	}
	return roots
}
