package models

import (
	"fmt"
	"path/filepath"
	"time"
)

// ChangeKind classifies a detected file change.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeMoved    ChangeKind = "moved"
	ChangeRenamed  ChangeKind = "renamed"
)

func (k ChangeKind) String() string {
	return string(k)
}

// IsValid reports whether k is one of the recognized change kinds.
func (k ChangeKind) IsValid() bool {
	switch k {
	case ChangeCreated, ChangeModified, ChangeDeleted, ChangeMoved, ChangeRenamed:
		return true
	}
	return false
}

// ChangeEvent is one append-only audit record of a confirmed change.
type ChangeEvent struct {
	ID           int64      `json:"id"`
	FileID       *int64     `json:"file_id,omitempty"`
	Path         string     `json:"path"`
	Kind         ChangeKind `json:"kind"`
	OccurredAt   time.Time  `json:"occurred_at"`
	PreviousHash string     `json:"previous_hash,omitempty"`
	NewHash      string     `json:"new_hash,omitempty"`
	Size         int64      `json:"size"`
	Description  string     `json:"description,omitempty"`
}

// NewChangeEvent builds an event for a confirmed change, stamped with
// the current time.
func NewChangeEvent(path string, kind ChangeKind, previousHash, newHash string, size int64) ChangeEvent {
	return ChangeEvent{
		Path:         path,
		Kind:         kind,
		OccurredAt:   time.Now(),
		PreviousHash: previousHash,
		NewHash:      newHash,
		Size:         size,
		Description:  fmt.Sprintf("File %s: %s", kind, filepath.Base(path)),
	}
}
