package monitor_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleister1102/filesentry/internal/config"
	"github.com/aleister1102/filesentry/internal/datastore"
	"github.com/aleister1102/filesentry/internal/hasher"
	"github.com/aleister1102/filesentry/internal/models"
	"github.com/aleister1102/filesentry/internal/monitor"
	"github.com/aleister1102/filesentry/internal/pathfilter"
	"github.com/aleister1102/filesentry/internal/reconciler"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceHarness struct {
	db      *datastore.DB
	service *monitor.MonitoringService
	root    string
}

func newServiceHarness(t *testing.T, recursive bool) *serviceHarness {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "watched")
	require.NoError(t, os.MkdirAll(root, 0o755))

	cfg := &config.MonitorConfig{
		MonitoredPaths: []config.MonitoredPathConfig{{Path: root, Recursive: recursive}},
	}

	db, err := datastore.NewDB(filepath.Join(dir, "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	filter := pathfilter.NewFilter(nil)
	rec := reconciler.NewReconciler(db, hasher.NewProber("sha256"), filter, zerolog.Nop())
	service := monitor.NewMonitoringService(cfg, rec, filter, zerolog.Nop())

	return &serviceHarness{db: db, service: service, root: root}
}

// eventually polls until the condition holds or the deadline passes.
func eventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestMonitoringService_Lifecycle(t *testing.T) {
	h := newServiceHarness(t, true)

	assert.Equal(t, monitor.StatusStopped, h.service.Status())
	require.NoError(t, h.service.Start())
	assert.Equal(t, monitor.StatusRunning, h.service.Status())

	// Idempotent: a second Start changes nothing.
	require.NoError(t, h.service.Start())
	assert.Equal(t, monitor.StatusRunning, h.service.Status())

	h.service.Stop()
	assert.Equal(t, monitor.StatusStopped, h.service.Status())

	// Stop on a stopped service is also a no-op.
	h.service.Stop()
	assert.Equal(t, monitor.StatusStopped, h.service.Status())
}

func TestMonitoringService_DetectsLiveCreation(t *testing.T) {
	h := newServiceHarness(t, true)
	require.NoError(t, h.service.Start())
	defer h.service.Stop()

	path := filepath.Join(h.root, "live.txt")
	require.NoError(t, os.WriteFile(path, []byte("fresh content"), 0o644))

	eventually(t, 3*time.Second, func() bool {
		events, err := h.db.EventsForPath(path, 10)
		return err == nil && len(events) > 0
	}, "expected a change event for the created file")

	events, err := h.db.EventsForPath(path, 10)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeCreated, events[0].Kind)

	entry, err := h.db.GetEntry(path)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, entry.Status)
}

func TestMonitoringService_DetectsLiveDeletion(t *testing.T) {
	h := newServiceHarness(t, true)

	path := filepath.Join(h.root, "doomed.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
	require.NoError(t, h.db.UpsertEntry(path, "precomputed", "sha256", 7))

	require.NoError(t, h.service.Start())
	defer h.service.Stop()

	require.NoError(t, os.Remove(path))

	eventually(t, 3*time.Second, func() bool {
		entry, err := h.db.GetEntry(path)
		return err == nil && entry.IsMissing()
	}, "expected the baseline entry to be marked missing")

	events, err := h.db.EventsForPath(path, 10)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, models.ChangeDeleted, events[0].Kind)
}

func TestMonitoringService_NewDirectoryIsWatched(t *testing.T) {
	h := newServiceHarness(t, true)
	require.NoError(t, h.service.Start())
	defer h.service.Stop()

	subdir := filepath.Join(h.root, "newdir")
	require.NoError(t, os.Mkdir(subdir, 0o755))

	// Give the watcher a moment to pick up the new directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(subdir, "inner.txt")
	require.NoError(t, os.WriteFile(path, []byte("inner"), 0o644))

	eventually(t, 3*time.Second, func() bool {
		events, err := h.db.EventsForPath(path, 10)
		return err == nil && len(events) > 0
	}, "expected a change event for a file in a newly created directory")
}

func TestMonitoringService_NonRecursiveRootIgnoresNewSubdirectories(t *testing.T) {
	h := newServiceHarness(t, false)
	require.NoError(t, h.service.Start())
	defer h.service.Stop()

	subdir := filepath.Join(h.root, "newdir")
	require.NoError(t, os.Mkdir(subdir, 0o755))
	time.Sleep(100 * time.Millisecond)

	inner := filepath.Join(subdir, "inner.txt")
	require.NoError(t, os.WriteFile(inner, []byte("inner"), 0o644))

	// A direct child of the root is still seen, which also orders this
	// test after the subdirectory events were dispatched.
	direct := filepath.Join(h.root, "direct.txt")
	require.NoError(t, os.WriteFile(direct, []byte("direct"), 0o644))

	eventually(t, 3*time.Second, func() bool {
		events, err := h.db.EventsForPath(direct, 10)
		return err == nil && len(events) > 0
	}, "expected a change event for a file directly under the root")

	_, err := h.db.GetEntry(inner)
	assert.ErrorIs(t, err, datastore.ErrEntryNotFound, "files inside a non-recursive root's subdirectory must stay untracked")
}
