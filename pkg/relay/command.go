package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/tinyland-inc/picorelay/pkg/enrich"
)

// CommandKind selects the operator action a Command performs.
type CommandKind int

const (
	NewMessage CommandKind = iota
	ReplyMessage
	InfoLookup
)

func (k CommandKind) String() string {
	switch k {
	case NewMessage:
		return "new_message"
	case ReplyMessage:
		return "reply"
	case InfoLookup:
		return "info"
	default:
		return "unknown"
	}
}

// Command is an operator request, independent of the surface it came from
// (Telegram dialogue or terminal console).
type Command struct {
	Kind CommandKind
	// Target is "@handle" or a numeric id, used by NewMessage and
	// InfoLookup.
	Target string
	// ThreadID is used by ReplyMessage.
	ThreadID int64
	Text     string
}

// Execute runs cmd and returns the acknowledgements to show the operator.
// The error is returned for logging only; its user-facing form is already
// part of the acknowledgements.
func (e *Engine) Execute(ctx context.Context, cmd Command) ([]string, error) {
	switch cmd.Kind {
	case NewMessage:
		res, err := e.StartThread(ctx, cmd.Target, cmd.Text)
		if err != nil {
			return []string{describeFailure(err)}, err
		}
		return []string{
			fmt.Sprintf("Sent to %d.", res.Thread.CounterpartyID),
			enrich.Render(res.Enrichment),
		}, nil

	case ReplyMessage:
		_, err := e.Reply(ctx, cmd.ThreadID, cmd.Text)
		if err != nil {
			return []string{describeFailure(err)}, err
		}
		return []string{"Reply sent."}, nil

	case InfoLookup:
		res, err := e.Lookup(ctx, cmd.Target)
		if err != nil {
			return []string{describeFailure(err)}, err
		}
		return []string{enrich.Render(res)}, nil
	}
	err := fmt.Errorf("unknown command kind %d", cmd.Kind)
	return []string{err.Error()}, err
}

func describeFailure(err error) string {
	var (
		tre      *TargetResolutionError
		inactive *ThreadInactiveError
		delivery *DeliveryError
	)
	switch {
	case errors.As(err, &tre):
		return fmt.Sprintf("Target not found: %v", tre.Err)
	case errors.As(err, &inactive):
		if errors.As(inactive.Cause, &delivery) {
			return fmt.Sprintf("Thread dead: %v. Start a new one.", delivery.Err)
		}
		return "Thread inactive, start a new one."
	case errors.As(err, &delivery):
		return fmt.Sprintf("Delivery failed: %v", delivery.Err)
	default:
		return fmt.Sprintf("Failed: %v", err)
	}
}
