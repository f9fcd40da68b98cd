package rslimiter

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/aleister1102/filesentry/internal/config"

	"github.com/rs/zerolog"
)

// ResourceLimiter watches memory and CPU usage and flips into a
// throttled state when configured limits are exceeded. The scan
// scheduler consults IsThrottled before starting a full scan cycle and
// defers the cycle while throttled; live event handling is unaffected.
type ResourceLimiter struct {
	config    config.ResourceLimiterConfig
	logger    zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	throttled bool
}

// NewResourceLimiter creates a new resource limiter
func NewResourceLimiter(cfg config.ResourceLimiterConfig, logger zerolog.Logger) *ResourceLimiter {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.CheckIntervalSeconds <= 0 {
		cfg.CheckIntervalSeconds = config.DefaultLimiterCheckInterval
	}
	if cfg.MaxMemoryMB <= 0 {
		cfg.MaxMemoryMB = config.DefaultMaxMemoryMB
	}
	if cfg.MaxCPUPercent <= 0 {
		cfg.MaxCPUPercent = config.DefaultMaxCPUPercent
	}

	return &ResourceLimiter{
		config: cfg,
		logger: logger.With().Str("component", "ResourceLimiter").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins monitoring resource usage
func (rl *ResourceLimiter) Start() {
	if !rl.config.Enabled {
		return
	}

	rl.mu.Lock()
	if rl.isRunning {
		rl.mu.Unlock()
		return
	}
	rl.isRunning = true
	rl.mu.Unlock()

	rl.wg.Add(1)
	go rl.monitorResources()

	rl.logger.Info().
		Int("max_memory_mb", rl.config.MaxMemoryMB).
		Float64("max_cpu_percent", rl.config.MaxCPUPercent).
		Int("check_interval_seconds", rl.config.CheckIntervalSeconds).
		Msg("Resource limiter started")
}

// Stop stops the resource monitor
func (rl *ResourceLimiter) Stop() {
	rl.mu.Lock()
	if !rl.isRunning {
		rl.mu.Unlock()
		return
	}
	rl.isRunning = false
	rl.mu.Unlock()

	rl.cancel()
	rl.wg.Wait()
	rl.logger.Info().Msg("Resource limiter stopped")
}

// IsThrottled reports whether resource limits are currently exceeded.
// Always false when the limiter is disabled.
func (rl *ResourceLimiter) IsThrottled() bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.throttled
}

// ForceGC forces garbage collection and logs the results
func (rl *ResourceLimiter) ForceGC() {
	var m1, m2 runtime.MemStats
	runtime.ReadMemStats(&m1)
	before := m1.Alloc / 1024 / 1024

	runtime.GC()

	runtime.ReadMemStats(&m2)
	after := m2.Alloc / 1024 / 1024

	rl.logger.Info().
		Uint64("before_mb", before).
		Uint64("after_mb", after).
		Msg("Forced garbage collection completed")
}

func (rl *ResourceLimiter) monitorResources() {
	defer rl.wg.Done()

	ticker := time.NewTicker(time.Duration(rl.config.CheckIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-rl.ctx.Done():
			return
		case <-ticker.C:
			rl.evaluate()
		}
	}
}

func (rl *ResourceLimiter) evaluate() {
	usage := GetResourceUsage()

	exceeded, reason := rl.limitsExceeded(usage)

	rl.mu.Lock()
	changed := exceeded != rl.throttled
	rl.throttled = exceeded
	rl.mu.Unlock()

	if !changed {
		rl.logger.Debug().
			Int64("alloc_mb", usage.AllocMB).
			Int("goroutines", usage.Goroutines).
			Float64("system_mem_percent", usage.SystemMemUsedPercent).
			Float64("cpu_percent", usage.CPUUsagePercent).
			Msg("Current resource usage")
		return
	}

	if exceeded {
		rl.logger.Warn().
			Str("reason", reason).
			Int64("alloc_mb", usage.AllocMB).
			Float64("cpu_percent", usage.CPUUsagePercent).
			Msg("Resource limits exceeded, scan cycles will be deferred")
		rl.ForceGC()
	} else {
		rl.logger.Info().Msg("Resource usage back under limits, scan cycles resumed")
	}
}

func (rl *ResourceLimiter) limitsExceeded(usage ResourceUsage) (bool, string) {
	if usage.AllocMB > int64(rl.config.MaxMemoryMB) {
		return true, "application memory limit exceeded"
	}
	if usage.CPUUsagePercent > rl.config.MaxCPUPercent {
		return true, "CPU usage limit exceeded"
	}
	return false, ""
}
