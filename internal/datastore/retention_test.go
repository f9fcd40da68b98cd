package datastore_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleister1102/filesentry/internal/config"
	"github.com/aleister1102/filesentry/internal/datastore"
	"github.com/aleister1102/filesentry/internal/models"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionJob_ArchivesAndPurgesOldEvents(t *testing.T) {
	db := newTestDB(t)
	archiveDir := filepath.Join(t.TempDir(), "archive")

	old := models.NewChangeEvent("/data/old.txt", models.ChangeModified, "h1", "h2", 1)
	old.OccurredAt = time.Now().AddDate(0, 0, -60)
	_, err := db.RecordEvent(old)
	require.NoError(t, err)

	recent := models.NewChangeEvent("/data/recent.txt", models.ChangeCreated, "", "h3", 2)
	_, err = db.RecordEvent(recent)
	require.NoError(t, err)

	cfg := &config.StorageConfig{
		ArchivePath:      archiveDir,
		RetentionDays:    30,
		CompressionCodec: "zstd",
	}

	purged, err := datastore.NewRetentionJob(db, cfg).Run()
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	events, err := db.Events(10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "/data/recent.txt", events[0].Path)

	files, err := os.ReadDir(archiveDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, ".parquet", filepath.Ext(files[0].Name()))
}

func TestRetentionJob_SecondCycleLeavesArchiveReadable(t *testing.T) {
	db := newTestDB(t)
	archiveDir := filepath.Join(t.TempDir(), "archive")

	cfg := &config.StorageConfig{
		ArchivePath:      archiveDir,
		RetentionDays:    30,
		CompressionCodec: "zstd",
	}
	job := datastore.NewRetentionJob(db, cfg)

	for _, path := range []string{"/data/first.txt", "/data/second.txt"} {
		aged := models.NewChangeEvent(path, models.ChangeModified, "h1", "h2", 1)
		aged.OccurredAt = time.Now().AddDate(0, 0, -60)
		_, err := db.RecordEvent(aged)
		require.NoError(t, err)

		purged, err := job.Run()
		require.NoError(t, err)
		assert.Equal(t, int64(1), purged)
	}

	files, err := os.ReadDir(archiveDir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	var recovered []string
	for _, file := range files {
		rows, err := parquet.ReadFile[models.ArchivedChangeEvent](filepath.Join(archiveDir, file.Name()))
		require.NoError(t, err, "archive file %s must stay readable", file.Name())
		for _, row := range rows {
			recovered = append(recovered, row.Path)
		}
	}
	assert.ElementsMatch(t, []string{"/data/first.txt", "/data/second.txt"}, recovered)
}

func TestRetentionJob_CleanupOldEventsExplicitCutoff(t *testing.T) {
	db := newTestDB(t)

	old := models.NewChangeEvent("/data/old.txt", models.ChangeDeleted, "h1", "", 0)
	old.OccurredAt = time.Now().Add(-48 * time.Hour)
	_, err := db.RecordEvent(old)
	require.NoError(t, err)

	recent := models.NewChangeEvent("/data/recent.txt", models.ChangeCreated, "", "h2", 2)
	_, err = db.RecordEvent(recent)
	require.NoError(t, err)

	cfg := &config.StorageConfig{
		ArchivePath:      filepath.Join(t.TempDir(), "archive"),
		CompressionCodec: "zstd",
	}

	purged, err := datastore.NewRetentionJob(db, cfg).CleanupOldEvents(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	events, err := db.Events(10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "/data/recent.txt", events[0].Path)
}

func TestRetentionJob_NothingToPurge(t *testing.T) {
	db := newTestDB(t)

	_, err := db.RecordEvent(models.NewChangeEvent("/data/recent.txt", models.ChangeCreated, "", "h1", 1))
	require.NoError(t, err)

	cfg := &config.StorageConfig{
		ArchivePath:      filepath.Join(t.TempDir(), "archive"),
		RetentionDays:    30,
		CompressionCodec: "zstd",
	}

	purged, err := datastore.NewRetentionJob(db, cfg).Run()
	require.NoError(t, err)
	assert.Equal(t, int64(0), purged)
}
