package monitor

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aleister1102/filesentry/internal/config"
	"github.com/aleister1102/filesentry/internal/datastore"
	"github.com/aleister1102/filesentry/internal/hasher"
	"github.com/aleister1102/filesentry/internal/pathfilter"
	"github.com/aleister1102/filesentry/internal/reconciler"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ScanSummary captures the outcome of one full scan cycle.
type ScanSummary struct {
	ScanID         string        `json:"scan_id"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Duration       time.Duration `json:"duration_ns"`
	FilesScanned   int64         `json:"files_scanned"`
	EventsRecorded int64         `json:"events_recorded"`
	ProbeFailures  int64         `json:"probe_failures"`
	MissingRoots   []string      `json:"missing_roots,omitempty"`
	Cancelled      bool          `json:"cancelled"`
}

// scanJob wraps one path and the WaitGroup of its scan cycle.
type scanJob struct {
	path    string
	cycleWG *sync.WaitGroup
}

// Scanner walks the configured roots and reconciles every visible
// file against the baseline, then sweeps the baseline for entries the
// walk no longer saw so deletions are detected without notifications.
type Scanner struct {
	cfg        *config.MonitorConfig
	store      *datastore.DB
	prober     *hasher.Prober
	reconciler *reconciler.Reconciler
	filter     *pathfilter.Filter
	logger     zerolog.Logger
}

// NewScanner creates a new full-scan engine.
func NewScanner(
	cfg *config.MonitorConfig,
	store *datastore.DB,
	prober *hasher.Prober,
	rec *reconciler.Reconciler,
	filter *pathfilter.Filter,
	logger zerolog.Logger,
) *Scanner {
	return &Scanner{
		cfg:        cfg,
		store:      store,
		prober:     prober,
		reconciler: rec,
		filter:     filter,
		logger:     logger.With().Str("component", "Scanner").Logger(),
	}
}

// RunFullScan executes one complete scan cycle: enumerate, reconcile,
// sweep for deletions. Cancelling the context stops the cycle between
// files; the partially advanced baseline stays consistent because each
// per-file reconciliation is atomic.
func (s *Scanner) RunFullScan(ctx context.Context, force bool) (*ScanSummary, error) {
	return s.RunFullScanWithID(ctx, uuid.New().String(), force)
}

// RunFullScanWithID is RunFullScan with a caller-chosen scan id, used
// when the id must be known before the cycle completes.
func (s *Scanner) RunFullScanWithID(ctx context.Context, scanID string, force bool) (*ScanSummary, error) {
	summary := &ScanSummary{
		ScanID:    scanID,
		StartedAt: time.Now(),
	}

	s.logger.Info().
		Str("scan_id", summary.ScanID).
		Bool("force", force).
		Int("roots", len(s.cfg.MonitoredPaths)).
		Msg("Starting full scan cycle")

	seen, missingRoots := s.enumerate(ctx, summary)
	summary.MissingRoots = missingRoots

	var eventCount, failureCount atomic.Int64

	jobs := make(chan scanJob, s.workerCount())
	var workerWG sync.WaitGroup
	for i := 0; i < s.workerCount(); i++ {
		workerWG.Add(1)
		go s.worker(ctx, jobs, &workerWG, &eventCount, &failureCount, force)
	}

	var cycleWG sync.WaitGroup
	submitted := s.submitPaths(ctx, jobs, &cycleWG, sortedPaths(seen))

	// Sweep: baseline entries the walk did not see are probed so real
	// deletions are recorded. Entries under an unreachable root are
	// skipped; an unmounted volume must not cascade into mass deletes.
	sweepPaths, sweepErr := s.deletionSweepPaths(seen, missingRoots)
	if sweepErr != nil {
		s.logger.Error().Err(sweepErr).Msg("Deletion sweep query failed")
	} else {
		submitted += s.submitPaths(ctx, jobs, &cycleWG, sweepPaths)
	}

	close(jobs)
	cycleWG.Wait()
	workerWG.Wait()

	s.pruneMutexes()

	summary.FinishedAt = time.Now()
	summary.Duration = summary.FinishedAt.Sub(summary.StartedAt)
	summary.FilesScanned = int64(submitted)
	summary.EventsRecorded = eventCount.Load()
	summary.ProbeFailures = failureCount.Load()
	summary.Cancelled = ctx.Err() != nil

	s.logger.Info().
		Str("scan_id", summary.ScanID).
		Int64("files_scanned", summary.FilesScanned).
		Int64("events_recorded", summary.EventsRecorded).
		Int64("probe_failures", summary.ProbeFailures).
		Dur("duration", summary.Duration).
		Bool("cancelled", summary.Cancelled).
		Msg("Full scan cycle finished")

	if sweepErr != nil {
		return summary, sweepErr
	}
	return summary, nil
}

// ScanPath scans a single root on demand, outside the regular cycle.
// The deletion sweep is restricted to baseline entries under that
// root, so an ad-hoc scan of one directory never touches the rest of
// the baseline.
func (s *Scanner) ScanPath(ctx context.Context, root string, force bool) (*ScanSummary, error) {
	summary := &ScanSummary{
		ScanID:    uuid.New().String(),
		StartedAt: time.Now(),
	}

	rootPath, err := filepath.Abs(root)
	if err != nil {
		rootPath = filepath.Clean(root)
	}

	s.logger.Info().
		Str("scan_id", summary.ScanID).
		Str("root", rootPath).
		Bool("force", force).
		Msg("Starting single-root scan")

	seen := make(map[string]struct{})
	info, statErr := os.Lstat(rootPath)
	switch {
	case statErr != nil:
		summary.MissingRoots = []string{rootPath}
	case !info.IsDir():
		if s.filter.IsMonitorableEntry(rootPath, info) {
			seen[rootPath] = struct{}{}
		}
	default:
		s.walkRoot(ctx, rootPath, true, seen)
	}

	var eventCount, failureCount atomic.Int64

	jobs := make(chan scanJob, s.workerCount())
	var workerWG sync.WaitGroup
	for i := 0; i < s.workerCount(); i++ {
		workerWG.Add(1)
		go s.worker(ctx, jobs, &workerWG, &eventCount, &failureCount, force)
	}

	var cycleWG sync.WaitGroup
	submitted := s.submitPaths(ctx, jobs, &cycleWG, sortedPaths(seen))

	var sweepErr error
	if statErr == nil {
		var sweepPaths []string
		sweepPaths, sweepErr = s.deletionSweepPaths(seen, nil)
		if sweepErr != nil {
			s.logger.Error().Err(sweepErr).Msg("Deletion sweep query failed")
		} else {
			var scoped []string
			for _, path := range sweepPaths {
				if underAnyRoot(path, []string{rootPath}) {
					scoped = append(scoped, path)
				}
			}
			submitted += s.submitPaths(ctx, jobs, &cycleWG, scoped)
		}
	}

	close(jobs)
	cycleWG.Wait()
	workerWG.Wait()

	summary.FinishedAt = time.Now()
	summary.Duration = summary.FinishedAt.Sub(summary.StartedAt)
	summary.FilesScanned = int64(submitted)
	summary.EventsRecorded = eventCount.Load()
	summary.ProbeFailures = failureCount.Load()
	summary.Cancelled = ctx.Err() != nil

	s.logger.Info().
		Str("scan_id", summary.ScanID).
		Str("root", rootPath).
		Int64("files_scanned", summary.FilesScanned).
		Int64("events_recorded", summary.EventsRecorded).
		Msg("Single-root scan finished")

	return summary, sweepErr
}

// pruneMutexes drops per-path mutexes for paths no longer in the
// baseline, keeping the map bounded under path churn.
func (s *Scanner) pruneMutexes() {
	entries, err := s.store.AllEntries()
	if err != nil {
		return
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, entry.Path)
	}
	s.store.PathMutexes().CleanupUnusedMutexes(paths)
}

func (s *Scanner) workerCount() int {
	if s.cfg.MaxConcurrentProbes <= 0 {
		return 1
	}
	return s.cfg.MaxConcurrentProbes
}

func (s *Scanner) worker(
	ctx context.Context,
	jobs <-chan scanJob,
	workerWG *sync.WaitGroup,
	eventCount, failureCount *atomic.Int64,
	force bool,
) {
	defer workerWG.Done()

	for job := range jobs {
		// Hash outside the per-path lock so workers stay parallel even
		// when live events contend for the same paths.
		probe, probeErr := s.prober.Probe(job.path)
		event, err := s.reconciler.ReconcileProbed(ctx, reconciler.ReconcileInput{
			Path:  job.path,
			Force: force,
		}, probe, probeErr)
		if err != nil && !errors.Is(err, context.Canceled) {
			failureCount.Add(1)
		}
		if event != nil {
			eventCount.Add(1)
		}
		job.cycleWG.Done()
	}
}

func (s *Scanner) submitPaths(ctx context.Context, jobs chan<- scanJob, cycleWG *sync.WaitGroup, paths []string) int {
	submitted := 0
	for _, path := range paths {
		cycleWG.Add(1)
		select {
		case jobs <- scanJob{path: path, cycleWG: cycleWG}:
			submitted++
		case <-ctx.Done():
			cycleWG.Done()
			return submitted
		}
	}
	return submitted
}

// enumerate walks every configured root and returns the set of
// monitorable file paths, plus the roots that could not be reached.
func (s *Scanner) enumerate(ctx context.Context, summary *ScanSummary) (map[string]struct{}, []string) {
	seen := make(map[string]struct{})
	var missingRoots []string

	for _, root := range s.cfg.MonitoredPaths {
		if ctx.Err() != nil {
			break
		}

		rootPath, err := filepath.Abs(root.Path)
		if err != nil {
			rootPath = filepath.Clean(root.Path)
		}

		info, err := os.Lstat(rootPath)
		if err != nil {
			s.logger.Warn().Str("root", rootPath).Err(err).
				Msg("Monitored root is unreachable, skipping this cycle")
			missingRoots = append(missingRoots, rootPath)
			continue
		}

		if !info.IsDir() {
			if s.filter.IsMonitorableEntry(rootPath, info) {
				seen[rootPath] = struct{}{}
			}
			continue
		}

		s.walkRoot(ctx, rootPath, root.Recursive, seen)
	}

	return seen, missingRoots
}

func (s *Scanner) walkRoot(ctx context.Context, rootPath string, recursive bool, seen map[string]struct{}) {
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if err != nil {
			s.logger.Debug().Str("path", path).Err(err).Msg("Walk error, skipping entry")
			return nil
		}

		if d.IsDir() {
			if path == rootPath {
				return nil
			}
			if !recursive || !s.filter.ShouldDescend(path) {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if s.filter.IsMonitorableEntry(path, info) {
			seen[path] = struct{}{}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Str("root", rootPath).Err(err).Msg("Walk aborted")
	}
}

// deletionSweepPaths returns baseline paths that are still recorded
// present but were not seen by the walk.
func (s *Scanner) deletionSweepPaths(seen map[string]struct{}, missingRoots []string) ([]string, error) {
	entries, err := s.store.AllEntries()
	if err != nil {
		return nil, err
	}

	var sweep []string
	for _, entry := range entries {
		if entry.IsMissing() {
			continue
		}
		if _, ok := seen[entry.Path]; ok {
			continue
		}
		if underAnyRoot(entry.Path, missingRoots) {
			continue
		}
		sweep = append(sweep, entry.Path)
	}
	return sweep, nil
}

func underAnyRoot(path string, roots []string) bool {
	for _, root := range roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func sortedPaths(set map[string]struct{}) []string {
	paths := make([]string, 0, len(set))
	for path := range set {
		paths = append(paths, path)
	}
	// Stable order keeps scan logs and event ordering deterministic.
	sort.Strings(paths)
	return paths
}
