package datastore_test

import (
	"testing"
	"time"

	"github.com/aleister1102/filesentry/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStore_RecordAndList(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.UpsertEntry("/data/report.txt", "a1b2", "sha256", 42))

	event := models.NewChangeEvent("/data/report.txt", models.ChangeModified, "a1b2", "c3d4", 50)
	id, err := db.RecordEvent(event)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	events, err := db.Events(10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, "/data/report.txt", got.Path)
	assert.Equal(t, models.ChangeModified, got.Kind)
	assert.Equal(t, "a1b2", got.PreviousHash)
	assert.Equal(t, "c3d4", got.NewHash)
	assert.Equal(t, int64(50), got.Size)
	require.NotNil(t, got.FileID, "event should link to its baseline entry")
}

func TestEventStore_RecordWithoutBaselineEntry(t *testing.T) {
	db := newTestDB(t)

	event := models.NewChangeEvent("/data/new.txt", models.ChangeCreated, "", "e5f6", 10)
	_, err := db.RecordEvent(event)
	require.NoError(t, err)

	events, err := db.Events(10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].FileID, "unlinked event degrades to a path-only record")
	assert.Empty(t, events[0].PreviousHash)
}

func TestEventStore_NewestFirstAndPagination(t *testing.T) {
	db := newTestDB(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		event := models.NewChangeEvent("/data/report.txt", models.ChangeModified, "old", "new", int64(i))
		event.OccurredAt = base.Add(time.Duration(i) * time.Minute)
		_, err := db.RecordEvent(event)
		require.NoError(t, err)
	}

	page, err := db.Events(2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(4), page[0].Size, "newest event first")
	assert.Equal(t, int64(3), page[1].Size)

	next, err := db.Events(2, 2)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, int64(2), next[0].Size)
}

func TestEventStore_EventsForPath(t *testing.T) {
	db := newTestDB(t)

	_, err := db.RecordEvent(models.NewChangeEvent("/data/a.txt", models.ChangeCreated, "", "h1", 1))
	require.NoError(t, err)
	_, err = db.RecordEvent(models.NewChangeEvent("/data/b.txt", models.ChangeCreated, "", "h2", 2))
	require.NoError(t, err)

	events, err := db.EventsForPath("/data/a.txt", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "/data/a.txt", events[0].Path)
}

func TestEventStore_CountsByKind(t *testing.T) {
	db := newTestDB(t)

	_, err := db.RecordEvent(models.NewChangeEvent("/data/a.txt", models.ChangeCreated, "", "h1", 1))
	require.NoError(t, err)
	_, err = db.RecordEvent(models.NewChangeEvent("/data/a.txt", models.ChangeModified, "h1", "h2", 1))
	require.NoError(t, err)
	_, err = db.RecordEvent(models.NewChangeEvent("/data/b.txt", models.ChangeModified, "h3", "h4", 2))
	require.NoError(t, err)

	total, err := db.CountEvents()
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	byKind, err := db.EventCountsByKind()
	require.NoError(t, err)
	assert.Equal(t, int64(1), byKind["created"])
	assert.Equal(t, int64(2), byKind["modified"])
}

func TestEventStore_EventsSurviveEntryRemoval(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.UpsertEntry("/data/report.txt", "a1b2", "sha256", 42))
	_, err := db.RecordEvent(models.NewChangeEvent("/data/report.txt", models.ChangeModified, "a1b2", "c3d4", 50))
	require.NoError(t, err)

	require.NoError(t, db.RemoveEntry("/data/report.txt"))

	events, err := db.Events(10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1, "audit log is append-only and outlives the entry")
	assert.Equal(t, "/data/report.txt", events[0].Path)
}
