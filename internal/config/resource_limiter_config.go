package config

// ResourceLimiterConfig defines thresholds that pause full scans when
// system resource usage is too high.
type ResourceLimiterConfig struct {
	Enabled              bool    `json:"enabled" yaml:"enabled"`
	MaxMemoryMB          int     `json:"max_memory_mb,omitempty" yaml:"max_memory_mb,omitempty" validate:"omitempty,min=64"`
	MaxCPUPercent        float64 `json:"max_cpu_percent,omitempty" yaml:"max_cpu_percent,omitempty" validate:"omitempty,min=1,max=100"`
	CheckIntervalSeconds int     `json:"check_interval_seconds,omitempty" yaml:"check_interval_seconds,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultResourceLimiterConfig creates default resource limiter configuration
func NewDefaultResourceLimiterConfig() ResourceLimiterConfig {
	return ResourceLimiterConfig{
		Enabled:              false,
		MaxMemoryMB:          DefaultMaxMemoryMB,
		MaxCPUPercent:        DefaultMaxCPUPercent,
		CheckIntervalSeconds: DefaultLimiterCheckInterval,
	}
}
