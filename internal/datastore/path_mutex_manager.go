package datastore

import (
	"sync"

	"github.com/rs/zerolog"
)

// PathMutexManager hands out one mutex per canonical path so that a
// live-event reconciliation and a concurrent full-scan reconciliation
// for the same path cannot interleave. Different paths proceed
// independently.
type PathMutexManager struct {
	mutexes map[string]*sync.Mutex
	mapLock sync.RWMutex
	enabled bool
	logger  zerolog.Logger
}

// NewPathMutexManager creates a new path mutex manager
func NewPathMutexManager(enabled bool, logger zerolog.Logger) *PathMutexManager {
	return &PathMutexManager{
		mutexes: make(map[string]*sync.Mutex),
		enabled: enabled,
		logger:  logger.With().Str("component", "PathMutexManager").Logger(),
	}
}

// GetMutex returns the mutex for a specific path, creating it on first
// use.
func (pmm *PathMutexManager) GetMutex(path string) *sync.Mutex {
	if !pmm.enabled {
		// Return a dummy mutex that's safe to use but doesn't provide locking
		return &sync.Mutex{}
	}

	pmm.mapLock.RLock()
	mutex, exists := pmm.mutexes[path]
	pmm.mapLock.RUnlock()

	if exists {
		return mutex
	}

	pmm.mapLock.Lock()
	defer pmm.mapLock.Unlock()

	// Double-check after acquiring write lock
	if mutex, exists := pmm.mutexes[path]; exists {
		return mutex
	}

	mutex = &sync.Mutex{}
	pmm.mutexes[path] = mutex
	return mutex
}

// MutexCount returns the number of tracked path mutexes.
func (pmm *PathMutexManager) MutexCount() int {
	pmm.mapLock.RLock()
	defer pmm.mapLock.RUnlock()
	return len(pmm.mutexes)
}

// CleanupUnusedMutexes removes mutexes for paths that are no longer in
// the baseline. Called at the end of each full scan cycle to keep the
// map bounded.
func (pmm *PathMutexManager) CleanupUnusedMutexes(activePaths []string) {
	if !pmm.enabled {
		return
	}

	activeSet := make(map[string]struct{})
	for _, path := range activePaths {
		activeSet[path] = struct{}{}
	}

	pmm.mapLock.Lock()
	defer pmm.mapLock.Unlock()

	for path := range pmm.mutexes {
		if _, active := activeSet[path]; !active {
			delete(pmm.mutexes, path)
		}
	}

	pmm.logger.Debug().
		Int("active_mutexes", len(pmm.mutexes)).
		Msg("Cleaned up unused path mutexes")
}
