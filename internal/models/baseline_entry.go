package models

import "time"

// FileStatus describes the baseline's view of a monitored file.
type FileStatus string

const (
	// StatusOK means the file existed with the recorded hash at the
	// last observation.
	StatusOK FileStatus = "OK"
	// StatusMissing means the file was baselined and later observed
	// absent. The entry is retained so a re-creation is
	// distinguishable from a brand-new file.
	StatusMissing FileStatus = "MISSING"
	// StatusUnknown is used for unrecognized persisted values.
	StatusUnknown FileStatus = "UNKNOWN"
)

func (s FileStatus) String() string {
	return string(s)
}

// ParseFileStatus maps a persisted status string to a FileStatus.
func ParseFileStatus(raw string) FileStatus {
	switch FileStatus(raw) {
	case StatusOK:
		return StatusOK
	case StatusMissing:
		return StatusMissing
	default:
		return StatusUnknown
	}
}

// BaselineEntry is the trusted reference state for one monitored file.
type BaselineEntry struct {
	ID            int64      `json:"id"`
	Path          string     `json:"path"`
	Hash          string     `json:"hash,omitempty"`
	HashAlgorithm string     `json:"hash_algorithm"`
	Size          int64      `json:"size"`
	Status        FileStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastScannedAt time.Time  `json:"last_scanned_at"`
}

// IsMissing reports whether the baseline recorded this file as absent.
func (e *BaselineEntry) IsMissing() bool {
	return e.Status == StatusMissing
}
