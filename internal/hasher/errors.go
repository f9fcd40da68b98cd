package hasher

import (
	"errors"
	"fmt"
)

// ErrFileNotFound indicates the file was absent at the moment of
// probing. This drives MISSING/deleted transitions and is never logged
// as an error.
var ErrFileNotFound = errors.New("file not found")

// ReadFailure represents a probe that could not complete because of a
// permission or I/O error. It is distinct from ErrFileNotFound: the
// caller skips reconciliation for the path this cycle and retries on
// the next one.
type ReadFailure struct {
	Path    string
	Wrapped error
}

func (e *ReadFailure) Error() string {
	return fmt.Sprintf("read failure for '%s': %v", e.Path, e.Wrapped)
}

func (e *ReadFailure) Unwrap() error {
	return e.Wrapped
}

// NewReadFailure creates a new ReadFailure
func NewReadFailure(path string, wrapped error) *ReadFailure {
	return &ReadFailure{Path: path, Wrapped: wrapped}
}

// IsReadFailure reports whether err is a ReadFailure.
func IsReadFailure(err error) bool {
	var rf *ReadFailure
	return errors.As(err, &rf)
}
