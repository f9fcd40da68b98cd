package datastore

import (
	"database/sql"
	"time"

	"github.com/aleister1102/filesentry/internal/errorwrapper"
	"github.com/aleister1102/filesentry/internal/models"
)

// GetEntry returns the baseline entry for a path, or ErrEntryNotFound.
func (d *DB) GetEntry(path string) (*models.BaselineEntry, error) {
	row := d.db.QueryRow(`
		SELECT id, file_path, COALESCE(baseline_hash, ''), hash_algorithm,
		       baseline_size, status, created_at, updated_at, last_scanned_at
		FROM monitored_files WHERE file_path = ?`, path)

	entry, err := scanBaselineEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, errorwrapper.NewStoreError("get", path, err)
	}
	return entry, nil
}

// UpsertEntry creates or updates the baseline entry for a path,
// always setting status OK and refreshing updated_at/last_scanned_at.
// The single statement keeps the write atomic with respect to
// concurrent readers: no reader can observe a partial hash with a
// stale size.
func (d *DB) UpsertEntry(path, hash, algorithm string, size int64) error {
	now := time.Now()
	_, err := d.db.Exec(`
		INSERT INTO monitored_files
			(file_path, baseline_hash, hash_algorithm, baseline_size, status,
			 created_at, updated_at, last_scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			baseline_hash = excluded.baseline_hash,
			hash_algorithm = excluded.hash_algorithm,
			baseline_size = excluded.baseline_size,
			status = excluded.status,
			updated_at = excluded.updated_at,
			last_scanned_at = excluded.last_scanned_at`,
		path, hash, algorithm, size, models.StatusOK.String(), now, now, now)
	if err != nil {
		return errorwrapper.NewStoreError("upsert", path, err)
	}
	return nil
}

// MarkMissing sets the entry status to MISSING and clears the hash.
// The row is retained so that a later re-creation of the file can be
// distinguished from a brand-new file.
func (d *DB) MarkMissing(path string) error {
	now := time.Now()
	_, err := d.db.Exec(`
		UPDATE monitored_files
		SET baseline_hash = NULL, status = ?, updated_at = ?, last_scanned_at = ?
		WHERE file_path = ?`,
		models.StatusMissing.String(), now, now, path)
	if err != nil {
		return errorwrapper.NewStoreError("mark_missing", path, err)
	}
	return nil
}

// RemoveEntry physically deletes a baseline entry. Retention policy
// keeps MISSING entries, so this is only used by explicit
// administrative cleanup.
func (d *DB) RemoveEntry(path string) error {
	if _, err := d.db.Exec(`DELETE FROM monitored_files WHERE file_path = ?`, path); err != nil {
		return errorwrapper.NewStoreError("remove", path, err)
	}
	return nil
}

// TouchScanTime refreshes last_scanned_at without recording a change.
// Cheap liveness bookkeeping for an unchanged file.
func (d *DB) TouchScanTime(path string) error {
	now := time.Now()
	_, err := d.db.Exec(`
		UPDATE monitored_files SET last_scanned_at = ?, updated_at = ?
		WHERE file_path = ?`, now, now, path)
	if err != nil {
		return errorwrapper.NewStoreError("touch_scan_time", path, err)
	}
	return nil
}

// AllEntries returns every baseline entry ordered by path for
// deterministic listing.
func (d *DB) AllEntries() ([]models.BaselineEntry, error) {
	rows, err := d.db.Query(`
		SELECT id, file_path, COALESCE(baseline_hash, ''), hash_algorithm,
		       baseline_size, status, created_at, updated_at, last_scanned_at
		FROM monitored_files ORDER BY file_path`)
	if err != nil {
		return nil, errorwrapper.NewStoreError("all_entries", "", err)
	}
	defer rows.Close()

	var entries []models.BaselineEntry
	for rows.Next() {
		entry, err := scanBaselineEntry(rows)
		if err != nil {
			return nil, errorwrapper.NewStoreError("all_entries", "", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errorwrapper.NewStoreError("all_entries", "", err)
	}
	return entries, nil
}

// CountEntries returns the number of monitored files in the baseline.
func (d *DB) CountEntries() (int64, error) {
	var count int64
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM monitored_files`).Scan(&count); err != nil {
		return 0, errorwrapper.NewStoreError("count_entries", "", err)
	}
	return count, nil
}

// LastScanTime returns the most recent last_scanned_at across all
// entries, or nil when nothing has been scanned yet.
func (d *DB) LastScanTime() (*time.Time, error) {
	var scanned sql.NullTime
	err := d.db.QueryRow(`SELECT MAX(last_scanned_at) FROM monitored_files`).Scan(&scanned)
	if err != nil {
		return nil, errorwrapper.NewStoreError("last_scan_time", "", err)
	}
	if !scanned.Valid {
		return nil, nil
	}
	return &scanned.Time, nil
}

// rowScanner matches both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBaselineEntry(scanner rowScanner) (*models.BaselineEntry, error) {
	var entry models.BaselineEntry
	var status string
	if err := scanner.Scan(
		&entry.ID, &entry.Path, &entry.Hash, &entry.HashAlgorithm,
		&entry.Size, &status, &entry.CreatedAt, &entry.UpdatedAt, &entry.LastScannedAt,
	); err != nil {
		return nil, err
	}
	entry.Status = models.ParseFileStatus(status)
	return &entry, nil
}
