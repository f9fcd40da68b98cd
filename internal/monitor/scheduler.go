package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/aleister1102/filesentry/internal/config"
	"github.com/aleister1102/filesentry/internal/datastore"
	"github.com/aleister1102/filesentry/internal/errorwrapper"
	"github.com/aleister1102/filesentry/internal/rslimiter"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrScanInProgress is returned when a scan trigger arrives while a
// cycle is already running.
var ErrScanInProgress = errorwrapper.WrapError(errorwrapper.ErrServiceUnavailable, "a scan cycle is already in progress")

// retentionInterval is how often aged events are archived and purged.
const retentionInterval = 24 * time.Hour

// Scheduler drives periodic full scans and daily event retention. At
// most one scan cycle runs at a time; a tick or manual trigger that
// lands mid-cycle is rejected rather than queued.
type Scheduler struct {
	cfg       *config.MonitorConfig
	scanner   *Scanner
	retention *datastore.RetentionJob
	limiter   *rslimiter.ResourceLimiter
	logger    zerolog.Logger

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	mu          sync.Mutex
	active      bool
	scanning    bool
	lastSummary *ScanSummary
}

// NewScheduler creates a new scan scheduler.
func NewScheduler(
	cfg *config.MonitorConfig,
	scanner *Scanner,
	retention *datastore.RetentionJob,
	limiter *rslimiter.ResourceLimiter,
	logger zerolog.Logger,
) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:        cfg,
		scanner:    scanner,
		retention:  retention,
		limiter:    limiter,
		logger:     logger.With().Str("component", "ScanScheduler").Logger(),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the periodic scan loop. When ScanOnStart is set, one
// full scan runs immediately so the baseline is established before the
// first interval elapses.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		s.logger.Warn().Msg("Scheduler already active")
		return
	}
	s.active = true
	s.mu.Unlock()

	if s.cfg.ScanOnStart {
		if _, _, err := s.TriggerScan(false); err != nil {
			s.logger.Error().Err(err).Msg("Initial scan trigger failed")
		}
	}

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().
		Int("scan_interval_minutes", s.scanIntervalMinutes()).
		Msg("Scan scheduler started")
}

// Stop cancels the running cycle (if any) and waits for the loop to
// drain.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.mu.Unlock()

	s.cancelFunc()
	s.wg.Wait()
	s.logger.Info().Msg("Scan scheduler stopped")
}

// TriggerScan starts a full scan cycle asynchronously and returns its
// scan id. ErrScanInProgress is returned when a cycle is already
// running.
func (s *Scheduler) TriggerScan(force bool) (scanID string, done <-chan struct{}, err error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return "", nil, ErrScanInProgress
	}
	s.scanning = true
	s.mu.Unlock()

	id := uuid.New().String()
	finished := make(chan struct{})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(finished)

		summary, scanErr := s.scanner.RunFullScanWithID(s.ctx, id, force)
		if scanErr != nil {
			s.logger.Error().Err(scanErr).Str("scan_id", id).Msg("Scan cycle finished with errors")
		}

		s.mu.Lock()
		s.scanning = false
		s.lastSummary = summary
		s.mu.Unlock()
	}()

	return id, finished, nil
}

// TriggerScanPaths starts an on-demand scan of specific roots
// asynchronously, sharing single-cycle exclusivity with full scans.
// The returned summary aggregates all requested roots under one scan
// id.
func (s *Scheduler) TriggerScanPaths(paths []string, force bool) (scanID string, done <-chan struct{}, err error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return "", nil, ErrScanInProgress
	}
	s.scanning = true
	s.mu.Unlock()

	id := uuid.New().String()
	finished := make(chan struct{})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(finished)

		combined := &ScanSummary{ScanID: id, StartedAt: time.Now()}
		for _, path := range paths {
			summary, scanErr := s.scanner.ScanPath(s.ctx, path, force)
			if scanErr != nil {
				s.logger.Error().Err(scanErr).Str("root", path).Str("scan_id", id).Msg("Targeted scan finished with errors")
			}
			if summary == nil {
				continue
			}
			combined.FilesScanned += summary.FilesScanned
			combined.EventsRecorded += summary.EventsRecorded
			combined.ProbeFailures += summary.ProbeFailures
			combined.MissingRoots = append(combined.MissingRoots, summary.MissingRoots...)
			combined.Cancelled = combined.Cancelled || summary.Cancelled
		}
		combined.FinishedAt = time.Now()
		combined.Duration = combined.FinishedAt.Sub(combined.StartedAt)

		s.mu.Lock()
		s.scanning = false
		s.lastSummary = combined
		s.mu.Unlock()
	}()

	return id, finished, nil
}

// IsScanning reports whether a scan cycle is currently running.
func (s *Scheduler) IsScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// LastSummary returns the most recently completed scan summary, or
// nil before the first cycle finishes.
func (s *Scheduler) LastSummary() *ScanSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSummary
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	scanTicker := time.NewTicker(time.Duration(s.scanIntervalMinutes()) * time.Minute)
	defer scanTicker.Stop()

	retentionTicker := time.NewTicker(retentionInterval)
	defer retentionTicker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-scanTicker.C:
			if s.limiter != nil && s.limiter.IsThrottled() {
				s.logger.Warn().Msg("Resource limits exceeded, deferring scheduled scan cycle")
				continue
			}
			if _, _, err := s.TriggerScan(false); err != nil {
				s.logger.Debug().Err(err).Msg("Skipping scheduled scan")
			}

		case <-retentionTicker.C:
			purged, err := s.retention.Run()
			if err != nil {
				s.logger.Error().Err(err).Msg("Event retention job failed")
			} else if purged > 0 {
				s.logger.Info().Int64("purged_events", purged).Msg("Event retention job completed")
			}
		}
	}
}

func (s *Scheduler) scanIntervalMinutes() int {
	if s.cfg.ScanIntervalMinutes <= 0 {
		return config.DefaultScanIntervalMinutes
	}
	return s.cfg.ScanIntervalMinutes
}
