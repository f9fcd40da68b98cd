package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aleister1102/filesentry/internal/config"
	"github.com/aleister1102/filesentry/internal/errorwrapper"
	"github.com/aleister1102/filesentry/internal/models"

	"github.com/parquet-go/parquet-go"
)

// RetentionJob purges change events older than the configured horizon.
// Purged rows are first written to a Parquet archive so the audit
// trail survives the purge. Cleanup removes by age only, never by
// content.
type RetentionJob struct {
	db  *DB
	cfg *config.StorageConfig
}

// NewRetentionJob creates a new retention job
func NewRetentionJob(db *DB, cfg *config.StorageConfig) *RetentionJob {
	return &RetentionJob{db: db, cfg: cfg}
}

// Run archives and deletes events older than retention_days. Returns
// the number of purged rows.
func (rj *RetentionJob) Run() (int64, error) {
	if rj.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	return rj.CleanupOldEvents(time.Now().AddDate(0, 0, -rj.cfg.RetentionDays))
}

// CleanupOldEvents archives and deletes all events that occurred
// before cutoff, regardless of the configured horizon.
func (rj *RetentionJob) CleanupOldEvents(cutoff time.Time) (int64, error) {
	aged, err := rj.db.eventsBefore(cutoff)
	if err != nil {
		return 0, err
	}
	if len(aged) == 0 {
		return 0, nil
	}

	if rj.cfg.ArchivePath != "" {
		if err := rj.archiveEvents(aged); err != nil {
			// Never delete what could not be archived.
			return 0, errorwrapper.WrapError(err, "retention archive failed, purge skipped")
		}
	}

	purged, err := rj.db.deleteEventsBefore(cutoff)
	if err != nil {
		return 0, err
	}

	rj.db.logger.Info().
		Int64("purged", purged).
		Time("cutoff", cutoff).
		Msg("Retention cleanup completed")
	return purged, nil
}

// archiveEvents writes aged rows to a fresh Parquet file per batch.
// A Parquet file carries its own footer, so batches must never be
// appended to an existing file; the month prefix keeps related
// batches grouped on disk.
func (rj *RetentionJob) archiveEvents(events []models.ChangeEvent) error {
	if err := os.MkdirAll(rj.cfg.ArchivePath, 0755); err != nil {
		return errorwrapper.WrapError(err, "failed to create archive directory")
	}

	now := time.Now()
	fileName := fmt.Sprintf("events_%s_%d.parquet", now.Format("2006_01"), now.UnixNano())
	filePath := filepath.Join(rj.cfg.ArchivePath, fileName)

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errorwrapper.WrapError(err, "failed to create event archive parquet file: "+filePath)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[models.ArchivedChangeEvent](file, rj.compressionOption())

	archived := make([]models.ArchivedChangeEvent, 0, len(events))
	for _, ev := range events {
		archived = append(archived, models.ToArchived(ev))
	}

	if _, err := writer.Write(archived); err != nil {
		_ = writer.Close()
		return errorwrapper.WrapError(err, "failed to write events to parquet archive")
	}
	if err := writer.Close(); err != nil {
		return errorwrapper.WrapError(err, "failed to close parquet archive writer")
	}
	return nil
}

func (rj *RetentionJob) compressionOption() parquet.WriterOption {
	switch rj.cfg.CompressionCodec {
	case "gzip":
		return parquet.Compression(&parquet.Gzip)
	case "snappy":
		return parquet.Compression(&parquet.Snappy)
	case "none":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Zstd)
	}
}

// eventsBefore returns every event with event_time strictly before cutoff.
func (d *DB) eventsBefore(cutoff time.Time) ([]models.ChangeEvent, error) {
	rows, err := d.db.Query(`
		SELECT id, monitored_file_id, file_path, event_time, event_type,
		       COALESCE(description, ''), COALESCE(old_hash, ''), COALESCE(new_hash, ''), file_size
		FROM change_log WHERE event_time < ? ORDER BY event_time`, cutoff)
	if err != nil {
		return nil, errorwrapper.NewStoreError("events_before", "", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// deleteEventsBefore removes events older than cutoff and returns the
// number of deleted rows.
func (d *DB) deleteEventsBefore(cutoff time.Time) (int64, error) {
	result, err := d.db.Exec(`DELETE FROM change_log WHERE event_time < ?`, cutoff)
	if err != nil {
		return 0, errorwrapper.NewStoreError("delete_events_before", "", err)
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, errorwrapper.NewStoreError("delete_events_before", "", err)
	}
	return purged, nil
}
