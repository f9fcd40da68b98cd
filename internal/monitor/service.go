package monitor

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aleister1102/filesentry/internal/config"
	"github.com/aleister1102/filesentry/internal/models"
	"github.com/aleister1102/filesentry/internal/pathfilter"
	"github.com/aleister1102/filesentry/internal/reconciler"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ServiceStatus describes the live-monitoring lifecycle state.
type ServiceStatus string

const (
	StatusStopped ServiceStatus = "stopped"
	StatusRunning ServiceStatus = "running"
)

// renamePairWindow bounds how long a rename/remove notification stays
// eligible for pairing with a subsequent create on another path.
const renamePairWindow = 500 * time.Millisecond

type pendingRename struct {
	path string
	at   time.Time
}

// watchRoot is one monitored root with its canonical path, used to
// scope directory-create handling to the originating root's settings.
type watchRoot struct {
	path      string
	recursive bool
}

// MonitoringService consumes filesystem notifications and funnels each
// one into the reconciler as an untrusted hint. Events are only
// recorded when the reconciler confirms a real content change, so
// notification noise (double-fires, touch without change) is absorbed.
type MonitoringService struct {
	cfg        *config.MonitorConfig
	reconciler *reconciler.Reconciler
	filter     *pathfilter.Filter
	logger     zerolog.Logger

	watcher *fsnotify.Watcher

	mu             sync.Mutex
	status         ServiceStatus
	pendingRenames []pendingRename
	watchRoots     []watchRoot

	serviceCtx        context.Context
	serviceCancelFunc context.CancelFunc
	wg                sync.WaitGroup
}

// NewMonitoringService creates a new live monitoring service.
func NewMonitoringService(
	cfg *config.MonitorConfig,
	rec *reconciler.Reconciler,
	filter *pathfilter.Filter,
	logger zerolog.Logger,
) *MonitoringService {
	return &MonitoringService{
		cfg:        cfg,
		reconciler: rec,
		filter:     filter,
		logger:     logger.With().Str("component", "MonitoringService").Logger(),
		status:     StatusStopped,
	}
}

// Status returns the current lifecycle state.
func (s *MonitoringService) Status() ServiceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start begins watching the configured roots. Calling Start on an
// already running service is a no-op.
func (s *MonitoringService) Start() error {
	s.mu.Lock()
	if s.status == StatusRunning {
		s.mu.Unlock()
		s.logger.Warn().Msg("Monitoring service already running")
		return nil
	}
	s.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	roots := make([]watchRoot, 0, len(s.cfg.MonitoredPaths))
	for _, root := range s.cfg.MonitoredPaths {
		rootPath, err := filepath.Abs(root.Path)
		if err != nil {
			rootPath = filepath.Clean(root.Path)
		}
		roots = append(roots, watchRoot{path: rootPath, recursive: root.Recursive})
	}

	s.mu.Lock()
	s.watcher = watcher
	s.serviceCtx = ctx
	s.serviceCancelFunc = cancel
	s.watchRoots = roots
	s.status = StatusRunning
	s.mu.Unlock()

	watched := 0
	for _, root := range s.cfg.MonitoredPaths {
		watched += s.addWatchTree(root.Path, root.Recursive)
	}

	s.wg.Add(1)
	go s.eventLoop(ctx)

	s.logger.Info().Int("watched_dirs", watched).Msg("Monitoring service started")
	return nil
}

// Stop halts event processing and releases the watcher. Events already
// dequeued finish reconciling before Stop returns.
func (s *MonitoringService) Stop() {
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return
	}
	cancel := s.serviceCancelFunc
	watcher := s.watcher
	s.mu.Unlock()

	cancel()
	if watcher != nil {
		_ = watcher.Close()
	}
	s.wg.Wait()

	s.mu.Lock()
	s.status = StatusStopped
	s.watcher = nil
	s.mu.Unlock()

	s.logger.Info().Msg("Monitoring service stopped")
}

// addWatchTree registers a root (and its subdirectories when
// recursive) with the watcher, pruning excluded subtrees.
func (s *MonitoringService) addWatchTree(root string, recursive bool) int {
	rootPath, err := filepath.Abs(root)
	if err != nil {
		rootPath = filepath.Clean(root)
	}

	info, err := os.Lstat(rootPath)
	if err != nil {
		s.logger.Warn().Str("root", rootPath).Err(err).Msg("Cannot watch unreachable root")
		return 0
	}

	if !info.IsDir() {
		// Watch the parent so create/remove of the file itself is seen.
		if err := s.watcher.Add(filepath.Dir(rootPath)); err != nil {
			s.logger.Warn().Str("path", rootPath).Err(err).Msg("Failed to add watch")
			return 0
		}
		return 1
	}

	added := 0
	walkErr := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != rootPath && (!recursive || !s.filter.ShouldDescend(path)) {
			return filepath.SkipDir
		}
		if werr := s.watcher.Add(path); werr != nil {
			s.logger.Warn().Str("path", path).Err(werr).Msg("Failed to add watch")
			return nil
		}
		added++
		return nil
	})
	if walkErr != nil {
		s.logger.Warn().Str("root", rootPath).Err(walkErr).Msg("Watch registration walk aborted")
	}
	return added
}

func (s *MonitoringService) eventLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ctx, event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// handleEvent maps one notification to a reconciler call. The
// notification kind is only a hint; the reconciler re-derives the
// authoritative kind from hashes.
func (s *MonitoringService) handleEvent(ctx context.Context, event fsnotify.Event) {
	path := event.Name

	switch {
	case event.Op&fsnotify.Create != 0:
		if info, err := os.Lstat(path); err == nil && info.IsDir() {
			if s.underRecursiveRoot(path) {
				s.watchNewDirectory(ctx, path)
			}
			return
		}
		hint := s.matchRenamePair(path)
		s.reconcile(ctx, path, hint)

	case event.Op&fsnotify.Write != 0:
		s.reconcile(ctx, path, models.ChangeModified)

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		s.rememberRename(path)
		s.reconcile(ctx, path, models.ChangeDeleted)

	case event.Op&fsnotify.Chmod != 0:
		// Metadata only; content integrity is unaffected.
	}
}

// watchNewDirectory extends the watch to a directory created inside a
// recursively monitored tree, then scans its contents so files that
// appeared before the watch was in place are still picked up.
func (s *MonitoringService) watchNewDirectory(ctx context.Context, dirPath string) {
	if !s.filter.ShouldDescend(dirPath) {
		return
	}

	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if !s.filter.ShouldDescend(path) {
				return filepath.SkipDir
			}
			if werr := s.watcher.Add(path); werr != nil {
				s.logger.Warn().Str("path", path).Err(werr).Msg("Failed to watch new directory")
			}
			return nil
		}
		s.reconcile(ctx, path, models.ChangeCreated)
		return nil
	})
}

// underRecursiveRoot reports whether path falls under a recursively
// monitored root. Directories created inside a non-recursive root are
// ignored, matching the scan walk's scope.
func (s *MonitoringService) underRecursiveRoot(path string) bool {
	s.mu.Lock()
	roots := s.watchRoots
	s.mu.Unlock()

	for _, root := range roots {
		if underAnyRoot(path, []string{root.path}) {
			return root.recursive
		}
	}
	return false
}

func (s *MonitoringService) reconcile(ctx context.Context, path string, hint models.ChangeKind) {
	_, err := s.reconciler.Reconcile(ctx, reconciler.ReconcileInput{
		Path: path,
		Hint: hint,
	})
	if err != nil && ctx.Err() == nil {
		s.logger.Warn().Str("path", path).Err(err).Msg("Reconciliation failed for notification")
	}
}

// rememberRename notes a vanished path so an immediately following
// create can be labeled renamed or moved instead of created.
func (s *MonitoringService) rememberRename(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	kept := s.pendingRenames[:0]
	for _, pr := range s.pendingRenames {
		if now.Sub(pr.at) < renamePairWindow {
			kept = append(kept, pr)
		}
	}
	s.pendingRenames = append(kept, pendingRename{path: path, at: now})
}

// matchRenamePair pairs a create with a recent disappearance: same
// directory means renamed, same base name in another directory means
// moved. No pairing falls back to the created label.
func (s *MonitoringService) matchRenamePair(createdPath string) models.ChangeKind {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for i, pr := range s.pendingRenames {
		if now.Sub(pr.at) >= renamePairWindow {
			continue
		}
		sameDir := filepath.Dir(pr.path) == filepath.Dir(createdPath)
		sameBase := filepath.Base(pr.path) == filepath.Base(createdPath)
		if sameDir && !sameBase {
			s.pendingRenames = append(s.pendingRenames[:i], s.pendingRenames[i+1:]...)
			return models.ChangeRenamed
		}
		if sameBase && !sameDir {
			s.pendingRenames = append(s.pendingRenames[:i], s.pendingRenames[i+1:]...)
			return models.ChangeMoved
		}
	}
	return models.ChangeCreated
}
