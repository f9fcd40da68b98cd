package models

// ArchivedChangeEvent is the Parquet row layout used when aged change
// events are moved out of the live database into archive files.
type ArchivedChangeEvent struct {
	ID           int64   `parquet:"id"`
	FileID       *int64  `parquet:"file_id,optional"`
	Path         string  `parquet:"file_path"`
	Kind         string  `parquet:"event_type"`
	OccurredAtMs int64   `parquet:"event_time,timestamp(millisecond)"`
	PreviousHash *string `parquet:"old_hash,optional"`
	NewHash      *string `parquet:"new_hash,optional"`
	Size         int64   `parquet:"file_size"`
	Description  *string `parquet:"description,optional"`
}

// ToArchived converts a live change event into its archive row form.
func ToArchived(event ChangeEvent) ArchivedChangeEvent {
	archived := ArchivedChangeEvent{
		ID:           event.ID,
		FileID:       event.FileID,
		Path:         event.Path,
		Kind:         event.Kind.String(),
		OccurredAtMs: event.OccurredAt.UnixMilli(),
		Size:         event.Size,
	}
	if event.PreviousHash != "" {
		archived.PreviousHash = &event.PreviousHash
	}
	if event.NewHash != "" {
		archived.NewHash = &event.NewHash
	}
	if event.Description != "" {
		archived.Description = &event.Description
	}
	return archived
}
