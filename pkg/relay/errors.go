package relay

import (
	"errors"
	"fmt"
)

// ErrUnknownThread is the cause of a ThreadInactiveError for an id that
// has no thread at all.
var ErrUnknownThread = errors.New("no such thread")

// TargetResolutionError reports operator input that does not name a
// reachable counterparty. No state is mutated.
type TargetResolutionError struct {
	Target string
	Err    error
}

func (e *TargetResolutionError) Error() string {
	return fmt.Sprintf("resolve target %q: %v", e.Target, e.Err)
}

func (e *TargetResolutionError) Unwrap() error { return e.Err }

// DeliveryError reports a failed platform send.
type DeliveryError struct {
	TargetID int64
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %d: %v", e.TargetID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// ThreadInactiveError reports a reply attempt on a dead thread. Cause is
// the DeliveryError when the thread died during this very attempt.
type ThreadInactiveError struct {
	ThreadID int64
	Cause    error
}

func (e *ThreadInactiveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("thread %d inactive: %v", e.ThreadID, e.Cause)
	}
	return fmt.Sprintf("thread %d inactive", e.ThreadID)
}

func (e *ThreadInactiveError) Unwrap() error { return e.Cause }
