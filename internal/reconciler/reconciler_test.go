package reconciler_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aleister1102/filesentry/internal/datastore"
	"github.com/aleister1102/filesentry/internal/hasher"
	"github.com/aleister1102/filesentry/internal/models"
	"github.com/aleister1102/filesentry/internal/pathfilter"
	"github.com/aleister1102/filesentry/internal/reconciler"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	db  *datastore.DB
	rec *reconciler.Reconciler
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	db, err := datastore.NewDB(filepath.Join(dir, "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rec := reconciler.NewReconciler(db, hasher.NewProber("sha256"), pathfilter.NewFilter(nil), zerolog.Nop())
	return &harness{db: db, rec: rec, dir: dir}
}

func (h *harness) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (h *harness) reconcile(t *testing.T, path string, hint models.ChangeKind) *models.ChangeEvent {
	t.Helper()
	event, err := h.rec.Reconcile(context.Background(), reconciler.ReconcileInput{Path: path, Hint: hint})
	require.NoError(t, err)
	return event
}

func TestReconciler_NewFileProducesCreated(t *testing.T) {
	h := newHarness(t)
	path := h.writeFile(t, "new.txt", "hello")

	event := h.reconcile(t, path, "")
	require.NotNil(t, event)
	assert.Equal(t, models.ChangeCreated, event.Kind)
	assert.Empty(t, event.PreviousHash)
	assert.NotEmpty(t, event.NewHash)

	entry, err := h.db.GetEntry(path)
	require.NoError(t, err)
	assert.Equal(t, event.NewHash, entry.Hash)
	assert.Equal(t, models.StatusOK, entry.Status)
}

func TestReconciler_UnchangedFileIsSilent(t *testing.T) {
	h := newHarness(t)
	path := h.writeFile(t, "stable.txt", "content")

	require.NotNil(t, h.reconcile(t, path, ""))

	// Repeated observations of an unchanged file never produce events,
	// regardless of how noisy the notification source is.
	for i := 0; i < 3; i++ {
		assert.Nil(t, h.reconcile(t, path, models.ChangeModified))
	}

	events, err := h.db.EventsForPath(path, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestReconciler_ContentChangeProducesModified(t *testing.T) {
	h := newHarness(t)
	path := h.writeFile(t, "doc.txt", "version one")

	created := h.reconcile(t, path, "")
	require.NotNil(t, created)

	h.writeFile(t, "doc.txt", "version two")
	event := h.reconcile(t, path, "")
	require.NotNil(t, event)
	assert.Equal(t, models.ChangeModified, event.Kind)
	assert.Equal(t, created.NewHash, event.PreviousHash)
	assert.NotEqual(t, event.PreviousHash, event.NewHash)
}

func TestReconciler_DeletionMarksMissing(t *testing.T) {
	h := newHarness(t)
	path := h.writeFile(t, "doomed.txt", "content")

	created := h.reconcile(t, path, "")
	require.NotNil(t, created)
	require.NoError(t, os.Remove(path))

	event := h.reconcile(t, path, "")
	require.NotNil(t, event)
	assert.Equal(t, models.ChangeDeleted, event.Kind)
	assert.Equal(t, created.NewHash, event.PreviousHash)
	assert.Empty(t, event.NewHash)

	entry, err := h.db.GetEntry(path)
	require.NoError(t, err)
	assert.True(t, entry.IsMissing())

	// Re-observing a known-absent file is a no-op.
	assert.Nil(t, h.reconcile(t, path, models.ChangeDeleted))
}

func TestReconciler_DeleteThenRecreateRoundTrip(t *testing.T) {
	h := newHarness(t)
	path := h.writeFile(t, "phoenix.txt", "first life")

	h.reconcile(t, path, "")
	original, err := h.db.GetEntry(path)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	deleted := h.reconcile(t, path, "")
	require.NotNil(t, deleted)
	require.Equal(t, models.ChangeDeleted, deleted.Kind)

	h.writeFile(t, "phoenix.txt", "second life")
	recreated := h.reconcile(t, path, "")
	require.NotNil(t, recreated)
	assert.Equal(t, models.ChangeCreated, recreated.Kind)

	entry, err := h.db.GetEntry(path)
	require.NoError(t, err)
	assert.Equal(t, original.ID, entry.ID, "recreated file reuses its memorialized entry")
	assert.Equal(t, models.StatusOK, entry.Status)

	events, err := h.db.EventsForPath(path, 10)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestReconciler_AbsentUnknownPathIsSilent(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.dir, "never-existed.txt")

	// A deletion notification for a path the baseline never tracked
	// must not fabricate an event.
	assert.Nil(t, h.reconcile(t, path, models.ChangeDeleted))

	events, err := h.db.Events(10, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestReconciler_RenameHintRelabelsCreation(t *testing.T) {
	h := newHarness(t)
	path := h.writeFile(t, "renamed-target.txt", "content")

	event := h.reconcile(t, path, models.ChangeRenamed)
	require.NotNil(t, event)
	assert.Equal(t, models.ChangeRenamed, event.Kind)

	// The hint only changes the label, never suppresses hashing: the
	// baseline gains a real hash for the new path.
	entry, err := h.db.GetEntry(path)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.Hash)
}

func TestReconciler_MoveHintRelabelsCreation(t *testing.T) {
	h := newHarness(t)
	path := h.writeFile(t, "moved-target.txt", "content")

	event := h.reconcile(t, path, models.ChangeMoved)
	require.NotNil(t, event)
	assert.Equal(t, models.ChangeMoved, event.Kind)
}

func TestReconciler_HintNeverOverridesObservedChange(t *testing.T) {
	h := newHarness(t)
	path := h.writeFile(t, "doc.txt", "v1")
	h.reconcile(t, path, "")

	h.writeFile(t, "doc.txt", "v2")
	// A bogus created hint for an already tracked file still resolves
	// to modified because the hash comparison is authoritative.
	event := h.reconcile(t, path, models.ChangeCreated)
	require.NotNil(t, event)
	assert.Equal(t, models.ChangeModified, event.Kind)
}

func TestReconciler_ExcludedPathIsIgnored(t *testing.T) {
	h := newHarness(t)
	path := h.writeFile(t, "scratch.tmp", "temp data")

	assert.Nil(t, h.reconcile(t, path, models.ChangeCreated))

	_, err := h.db.GetEntry(path)
	assert.ErrorIs(t, err, datastore.ErrEntryNotFound)
}

func TestReconciler_ForceRefreshesWithoutEvent(t *testing.T) {
	h := newHarness(t)
	path := h.writeFile(t, "stable.txt", "content")
	h.reconcile(t, path, "")

	event, err := h.rec.Reconcile(context.Background(), reconciler.ReconcileInput{Path: path, Force: true})
	require.NoError(t, err)
	assert.Nil(t, event, "force re-baseline of unchanged content is not a change")

	events, err := h.db.EventsForPath(path, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

type captureSink struct {
	events []models.ChangeEvent
}

func (cs *captureSink) OnChangeEvent(event models.ChangeEvent) {
	cs.events = append(cs.events, event)
}

func TestReconciler_SinkReceivesRecordedEvents(t *testing.T) {
	h := newHarness(t)
	sink := &captureSink{}
	h.rec.AddSink(sink)

	path := h.writeFile(t, "watched.txt", "content")
	h.reconcile(t, path, "")
	h.reconcile(t, path, "")

	require.Len(t, sink.events, 1)
	assert.Equal(t, models.ChangeCreated, sink.events[0].Kind)
	assert.Greater(t, sink.events[0].ID, int64(0))
}

func TestReconciler_CallerSuppliedProbe(t *testing.T) {
	h := newHarness(t)
	path := h.writeFile(t, "probed.txt", "content")

	prober := hasher.NewProber("sha256")
	probe, probeErr := prober.Probe(path)

	event, err := h.rec.ReconcileProbed(context.Background(), reconciler.ReconcileInput{Path: path}, probe, probeErr)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, models.ChangeCreated, event.Kind)
	assert.Equal(t, probe.Hash, event.NewHash)

	// Replaying the same probe is notification noise: no second event.
	event, err = h.rec.ReconcileProbed(context.Background(), reconciler.ReconcileInput{Path: path}, probe, probeErr)
	require.NoError(t, err)
	assert.Nil(t, event)

	// A not-found probe result drives the deletion path.
	require.NoError(t, os.Remove(path))
	_, probeErr = prober.Probe(path)
	event, err = h.rec.ReconcileProbed(context.Background(), reconciler.ReconcileInput{Path: path}, hasher.FileProbe{}, probeErr)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, models.ChangeDeleted, event.Kind)
}
