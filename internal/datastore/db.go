package datastore

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/aleister1102/filesentry/internal/errorwrapper"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection holding the baseline table and
// the append-only change log.
type DB struct {
	db          *sql.DB
	logger      zerolog.Logger
	pathMutexes *PathMutexManager
}

// NewDB initializes the database connection and ensures the schema is
// set up. An unrecoverable failure here is the only per-store error
// that is fatal at startup.
func NewDB(dataSourceName string, logger zerolog.Logger) (*DB, error) {
	dbLogger := logger.With().Str("component", "Datastore").Logger()
	dbLogger.Info().Str("db_path", dataSourceName).Msg("Initializing baseline database connection")

	dbDir := filepath.Dir(dataSourceName)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, errorwrapper.WrapError(err, "failed to create database directory "+dbDir)
	}

	dbInstance, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, errorwrapper.WrapError(err, "sql.Open failed for "+dataSourceName)
	}

	dbInstance.SetMaxOpenConns(1) // sqlite: single writer, avoids SQLITE_BUSY
	dbInstance.SetConnMaxLifetime(time.Hour)

	if err := dbInstance.Ping(); err != nil {
		_ = dbInstance.Close()
		return nil, errorwrapper.WrapError(err, "failed to ping database")
	}

	store := &DB{
		db:          dbInstance,
		logger:      dbLogger,
		pathMutexes: NewPathMutexManager(true, dbLogger),
	}

	if err := store.initSchema(); err != nil {
		_ = store.Close()
		return nil, errorwrapper.WrapError(err, "failed to initialize schema")
	}

	dbLogger.Info().Str("path", dataSourceName).Msg("Database initialized and schema verified")
	return store, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// PathMutexes exposes the per-path mutex manager so that the
// reconciler can serialize live-event and scan work on the same path.
func (d *DB) PathMutexes() *PathMutexManager {
	return d.pathMutexes
}

// initSchema creates the monitored_files and change_log tables if they
// don't already exist, plus the indexes that keep path lookup and
// event listing sub-linear.
func (d *DB) initSchema() error {
	schema := `
	PRAGMA journal_mode=WAL;

	CREATE TABLE IF NOT EXISTS monitored_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT UNIQUE NOT NULL,
		baseline_hash TEXT,
		hash_algorithm TEXT NOT NULL DEFAULT 'sha256',
		baseline_size INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'UNKNOWN',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		last_scanned_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS change_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		monitored_file_id INTEGER REFERENCES monitored_files(id) ON DELETE SET NULL,
		file_path TEXT NOT NULL,
		event_time DATETIME NOT NULL,
		event_type TEXT NOT NULL,
		description TEXT,
		old_hash TEXT,
		new_hash TEXT,
		file_size INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_monitored_files_path ON monitored_files(file_path);
	CREATE INDEX IF NOT EXISTS idx_change_log_file_path ON change_log(file_path);
	CREATE INDEX IF NOT EXISTS idx_change_log_event_time ON change_log(event_time);
	`

	if _, err := d.db.Exec(schema); err != nil {
		d.logger.Error().Err(err).Msg("Failed to initialize schema")
		return err
	}
	return nil
}
