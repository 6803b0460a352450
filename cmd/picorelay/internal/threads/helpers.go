package threads

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/tinyland-inc/picorelay/cmd/picorelay/internal"
	"github.com/tinyland-inc/picorelay/pkg/dialogue"
	"github.com/tinyland-inc/picorelay/pkg/thread"
)

// threadsCmd reads the store document without locking or flushing it, so
// it is safe next to a running relay.
func threadsCmd(out io.Writer, all bool, show int64) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	store := thread.NewStore(cfg.Relay.ThreadsFile)
	if err := store.Load(); err != nil {
		return fmt.Errorf("error loading threads: %w", err)
	}

	if show != 0 {
		t, ok := store.Get(show)
		if !ok {
			return fmt.Errorf("thread %d: %w", show, thread.ErrNotFound)
		}
		status := "active"
		if !t.Active {
			status = "inactive"
		}
		fmt.Fprintf(out, "Thread %d (@%s, %s, last sent %d)\n", t.CounterpartyID, t.DisplayHandle(), status, t.LastSentMessageID)
		fmt.Fprintln(out, dialogue.RenderLog(t))
		return nil
	}

	var rows []*thread.Thread
	if all {
		rows = store.All()
	} else {
		for _, t := range store.ForEachActive() {
			rows = append(rows, t)
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No threads.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tHANDLE\tMSGS\tACTIVE\tLAST ACTIVITY")
	for _, t := range rows {
		fmt.Fprintf(tw, "%d\t@%s\t%d\t%t\t%s\n",
			t.CounterpartyID, t.DisplayHandle(), len(t.History), t.Active,
			humanize.Time(t.LastActivity()))
	}
	return tw.Flush()
}
