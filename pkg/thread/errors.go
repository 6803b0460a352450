package thread

import (
	"errors"
	"fmt"
)

var (
	ErrDecodeFailed      = errors.New("thread store: decode failed")
	ErrEncodeFailed      = errors.New("thread store: encode failed")
	ErrAtomicWriteFailed = errors.New("thread store: atomic write failed")
	ErrLocked            = errors.New("thread store: document is locked by another process")
	ErrNotFound          = errors.New("thread store: not found")
)

// PersistenceError reports a failed flush. The in-memory state has already
// been restored to its pre-mutation value when this is returned from a
// mutating call.
type PersistenceError struct {
	Path       string
	RolledBack bool
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
