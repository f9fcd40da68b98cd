package datastore

import (
	"database/sql"

	"github.com/aleister1102/filesentry/internal/errorwrapper"
	"github.com/aleister1102/filesentry/internal/models"
)

// RecordEvent appends a change event to the audit log and returns its
// id. The link to the baseline entry is resolved by path at insert
// time; it stays NULL when no entry exists, degrading gracefully to a
// path-only record. Inserts are commutative, so concurrent writers
// need no additional coordination.
func (d *DB) RecordEvent(event models.ChangeEvent) (int64, error) {
	var fileID sql.NullInt64
	if entry, err := d.GetEntry(event.Path); err == nil {
		fileID = sql.NullInt64{Int64: entry.ID, Valid: true}
	}

	result, err := d.db.Exec(`
		INSERT INTO change_log
			(monitored_file_id, file_path, event_time, event_type, description,
			 old_hash, new_hash, file_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fileID, event.Path, event.OccurredAt, event.Kind.String(), event.Description,
		nullableString(event.PreviousHash), nullableString(event.NewHash), event.Size)
	if err != nil {
		return 0, errorwrapper.NewStoreError("record_event", event.Path, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errorwrapper.NewStoreError("record_event", event.Path, err)
	}
	return id, nil
}

// Events returns change events newest first with pagination.
func (d *DB) Events(limit, offset int) ([]models.ChangeEvent, error) {
	rows, err := d.db.Query(`
		SELECT id, monitored_file_id, file_path, event_time, event_type,
		       COALESCE(description, ''), COALESCE(old_hash, ''), COALESCE(new_hash, ''), file_size
		FROM change_log ORDER BY event_time DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, errorwrapper.NewStoreError("events", "", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// EventsForPath returns the most recent events for one path.
func (d *DB) EventsForPath(path string, limit int) ([]models.ChangeEvent, error) {
	rows, err := d.db.Query(`
		SELECT id, monitored_file_id, file_path, event_time, event_type,
		       COALESCE(description, ''), COALESCE(old_hash, ''), COALESCE(new_hash, ''), file_size
		FROM change_log WHERE file_path = ?
		ORDER BY event_time DESC, id DESC LIMIT ?`, path, limit)
	if err != nil {
		return nil, errorwrapper.NewStoreError("events_for_path", path, err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// CountEvents returns the total number of recorded change events.
func (d *DB) CountEvents() (int64, error) {
	var count int64
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM change_log`).Scan(&count); err != nil {
		return 0, errorwrapper.NewStoreError("count_events", "", err)
	}
	return count, nil
}

// EventCountsByKind returns event totals grouped by kind, for the
// statistics endpoint.
func (d *DB) EventCountsByKind() (map[string]int64, error) {
	rows, err := d.db.Query(`SELECT event_type, COUNT(*) FROM change_log GROUP BY event_type`)
	if err != nil {
		return nil, errorwrapper.NewStoreError("event_counts", "", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, errorwrapper.NewStoreError("event_counts", "", err)
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

func collectEvents(rows *sql.Rows) ([]models.ChangeEvent, error) {
	var events []models.ChangeEvent
	for rows.Next() {
		var event models.ChangeEvent
		var fileID sql.NullInt64
		var kind string
		if err := rows.Scan(
			&event.ID, &fileID, &event.Path, &event.OccurredAt, &kind,
			&event.Description, &event.PreviousHash, &event.NewHash, &event.Size,
		); err != nil {
			return nil, err
		}
		if fileID.Valid {
			id := fileID.Int64
			event.FileID = &id
		}
		event.Kind = models.ChangeKind(kind)
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
