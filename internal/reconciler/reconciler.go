package reconciler

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/aleister1102/filesentry/internal/datastore"
	"github.com/aleister1102/filesentry/internal/hasher"
	"github.com/aleister1102/filesentry/internal/models"
	"github.com/aleister1102/filesentry/internal/pathfilter"

	"github.com/rs/zerolog"
)

// EventSink receives every change event the reconciler records.
// Implementations must not block reconciliation.
type EventSink interface {
	OnChangeEvent(event models.ChangeEvent)
}

// ReconcileInput carries one observation into the reconciler.
type ReconcileInput struct {
	Path string
	// Hint is the notification-supplied guess at the change kind.
	// Empty for scan-driven reconciliation. The authoritative kind is
	// still derived from hash comparison; moved/renamed hints only
	// relabel a confirmed creation.
	Hint models.ChangeKind
	// Force re-baselines the file even when unchanged, refreshing scan
	// metadata. Events are still only emitted on real hash changes.
	Force bool
}

// Reconciler compares live observations against the baseline and
// decides whether a reportable event exists. It is the single point of
// event-emission authority: full scans and live notifications both
// funnel through here.
type Reconciler struct {
	store  *datastore.DB
	prober *hasher.Prober
	filter *pathfilter.Filter
	logger zerolog.Logger
	sinks  []EventSink
}

// NewReconciler creates a new change reconciler.
func NewReconciler(store *datastore.DB, prober *hasher.Prober, filter *pathfilter.Filter, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		prober: prober,
		filter: filter,
		logger: logger.With().Str("component", "Reconciler").Logger(),
	}
}

// AddSink registers a sink for recorded change events.
func (r *Reconciler) AddSink(sink EventSink) {
	r.sinks = append(r.sinks, sink)
}

// Reconcile probes the path and applies the change-detection rules.
// It returns the recorded event, or nil when the observation did not
// constitute a reportable change. A ReadFailure is returned without
// touching the baseline; the path is retried on the next cycle. Store
// errors propagate so the caller can retry rather than silently drop
// an event.
func (r *Reconciler) Reconcile(ctx context.Context, input ReconcileInput) (*models.ChangeEvent, error) {
	path := canonicalPath(input.Path)

	if !r.filter.IsMonitorable(path) {
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Serialize per-path so a live event and a concurrent scan cannot
	// interleave and produce two contradictory events from one change.
	mutex := r.store.PathMutexes().GetMutex(path)
	mutex.Lock()
	defer mutex.Unlock()

	probe, probeErr := r.prober.Probe(path)
	return r.apply(path, input, probe, probeErr)
}

// ReconcileProbed is Reconcile with a caller-supplied probe result,
// for call sites that have already read the file. The probe happened
// outside the per-path lock, so a racing writer can at worst cause one
// extra event for a change that genuinely occurred.
func (r *Reconciler) ReconcileProbed(ctx context.Context, input ReconcileInput, probe hasher.FileProbe, probeErr error) (*models.ChangeEvent, error) {
	path := canonicalPath(input.Path)

	if !r.filter.IsMonitorable(path) {
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mutex := r.store.PathMutexes().GetMutex(path)
	mutex.Lock()
	defer mutex.Unlock()

	return r.apply(path, input, probe, probeErr)
}

// apply runs the change-detection rules for one observation. The
// caller holds the path's mutex.
func (r *Reconciler) apply(path string, input ReconcileInput, probe hasher.FileProbe, probeErr error) (*models.ChangeEvent, error) {
	if probeErr != nil && !errors.Is(probeErr, hasher.ErrFileNotFound) {
		// ReadFailure: no new observation this cycle, baseline untouched.
		r.logger.Warn().Err(probeErr).Str("path", path).Msg("Probe failed, skipping reconciliation for this cycle")
		return nil, probeErr
	}

	entry, err := r.store.GetEntry(path)
	if err != nil && !errors.Is(err, datastore.ErrEntryNotFound) {
		return nil, err
	}

	if errors.Is(probeErr, hasher.ErrFileNotFound) {
		return r.reconcileAbsent(path, entry)
	}
	return r.reconcilePresent(path, entry, probe, input)
}

// reconcileAbsent handles a path observed absent.
func (r *Reconciler) reconcileAbsent(path string, entry *models.BaselineEntry) (*models.ChangeEvent, error) {
	if entry == nil || entry.IsMissing() {
		// Already known absent: notification noise, no event.
		return nil, nil
	}

	event := models.NewChangeEvent(path, models.ChangeDeleted, entry.Hash, "", entry.Size)
	recorded, err := r.recordEvent(event)
	if err != nil {
		return nil, err
	}

	// Entry is memorialized as MISSING rather than removed, so a later
	// re-creation is distinguishable from a brand-new file.
	if err := r.store.MarkMissing(path); err != nil {
		return recorded, err
	}

	r.logger.Info().Str("path", path).Msg("File deleted, baseline marked missing")
	return recorded, nil
}

// reconcilePresent handles a successful probe.
func (r *Reconciler) reconcilePresent(path string, entry *models.BaselineEntry, probe hasher.FileProbe, input ReconcileInput) (*models.ChangeEvent, error) {
	switch {
	case entry == nil:
		return r.recordAndBaseline(path, creationKind(input.Hint), "", probe)

	case entry.IsMissing():
		// File reappeared after deletion.
		return r.recordAndBaseline(path, creationKind(input.Hint), "", probe)

	case entry.Hash == probe.Hash:
		if input.Force {
			if err := r.store.UpsertEntry(path, probe.Hash, r.prober.Algorithm(), probe.Size); err != nil {
				return nil, err
			}
			return nil, nil
		}
		// Unchanged: refresh liveness bookkeeping only.
		return nil, r.store.TouchScanTime(path)

	default:
		return r.recordAndBaseline(path, models.ChangeModified, entry.Hash, probe)
	}
}

// recordAndBaseline records the event first (linking whatever baseline
// entry existed at the time, or none) and then advances the baseline,
// mirroring the audit-before-update ordering of the change log.
func (r *Reconciler) recordAndBaseline(path string, kind models.ChangeKind, previousHash string, probe hasher.FileProbe) (*models.ChangeEvent, error) {
	event := models.NewChangeEvent(path, kind, previousHash, probe.Hash, probe.Size)
	recorded, err := r.recordEvent(event)
	if err != nil {
		return nil, err
	}

	if err := r.store.UpsertEntry(path, probe.Hash, r.prober.Algorithm(), probe.Size); err != nil {
		return recorded, err
	}

	r.logger.Info().
		Str("path", path).
		Str("kind", kind.String()).
		Str("new_hash", probe.Hash).
		Msg("Recorded change event")
	return recorded, nil
}

func (r *Reconciler) recordEvent(event models.ChangeEvent) (*models.ChangeEvent, error) {
	id, err := r.store.RecordEvent(event)
	if err != nil {
		return nil, err
	}
	event.ID = id

	for _, sink := range r.sinks {
		sink.OnChangeEvent(event)
	}
	return &event, nil
}

// creationKind relabels a confirmed creation according to the
// coordinator-supplied hint. The hash is never assumed; only the label
// differs.
func creationKind(hint models.ChangeKind) models.ChangeKind {
	switch hint {
	case models.ChangeRenamed:
		return models.ChangeRenamed
	case models.ChangeMoved:
		return models.ChangeMoved
	default:
		return models.ChangeCreated
	}
}

func canonicalPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
