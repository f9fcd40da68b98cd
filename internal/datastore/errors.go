package datastore

import "github.com/aleister1102/filesentry/internal/errorwrapper"

// ErrEntryNotFound indicates no baseline entry exists for the path.
// This is expected during reconciliation of newly observed files and
// is never logged as an error.
var ErrEntryNotFound = errorwrapper.WrapError(errorwrapper.ErrNotFound, "baseline entry")
