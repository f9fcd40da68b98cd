package datastore

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestPathMutexManager_SameMutexForSamePath(t *testing.T) {
	manager := NewPathMutexManager(true, zerolog.Nop())

	m1 := manager.GetMutex("/data/a.txt")
	m2 := manager.GetMutex("/data/a.txt")
	if m1 != m2 {
		t.Fatalf("expected the same mutex instance for the same path")
	}

	m3 := manager.GetMutex("/data/b.txt")
	if m1 == m3 {
		t.Fatalf("expected distinct mutexes for distinct paths")
	}
}

func TestPathMutexManager_ConcurrentAccess(t *testing.T) {
	manager := NewPathMutexManager(true, zerolog.Nop())

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu := manager.GetMutex("/data/contended.txt")
			mu.Lock()
			counter++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 serialized increments, got %d", counter)
	}
}

func TestPathMutexManager_Cleanup(t *testing.T) {
	manager := NewPathMutexManager(true, zerolog.Nop())
	manager.GetMutex("/data/gone.txt")
	manager.GetMutex("/data/kept.txt")

	manager.CleanupUnusedMutexes([]string{"/data/kept.txt"})

	if got := manager.MutexCount(); got != 1 {
		t.Fatalf("expected 1 mutex after cleanup, got %d", got)
	}
}
