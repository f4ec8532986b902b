package files

import (
	"errors"
	"fmt"
)

// ErrFileNotFound marks operations referencing an unknown file id.
var ErrFileNotFound = errors.New("file not found")

// QuotaExceededError reports an upload that would exceed the plan ceiling.
// The upload is aborted before any transfer; the offending sizes ride along
// for display.
type QuotaExceededError struct {
	Size  int64
	Used  int64
	Limit int64
}

func (e QuotaExceededError) Error() string {
	return fmt.Sprintf("upload of %d bytes exceeds plan quota: %d of %d bytes used", e.Size, e.Used, e.Limit)
}

// TransportError wraps a storage-collaborator failure. Local state is rolled
// back to its pre-attempt value; the user may retry manually — the engine
// never retries on its own.
type TransportError struct {
	Op  string
	Err error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e TransportError) Unwrap() error { return e.Err }
