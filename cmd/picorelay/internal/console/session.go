package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/tinyland-inc/picorelay/pkg/dialogue"
	"github.com/tinyland-inc/picorelay/pkg/relay"
	"github.com/tinyland-inc/picorelay/pkg/thread"
)

const channelName = "console"

// Caller runs a relay command on the dispatcher goroutine.
type Caller interface {
	Call(ctx context.Context, channel string, cmd relay.Command) ([]string, error)
}

// Threads is the read-only store view used by /threads and /view.
type Threads interface {
	Get(id int64) (*thread.Thread, bool)
	ForEachActive() iter.Seq2[int64, *thread.Thread]
}

// Session executes console lines. It is driven by a single reader.
type Session struct {
	caller  Caller
	threads Threads
	out     io.Writer
}

func NewSession(caller Caller, threads Threads, out io.Writer) *Session {
	return &Session{caller: caller, threads: threads, out: out}
}

// Exec runs one line and reports whether the console should exit.
func (s *Session) Exec(ctx context.Context, line string) bool {
	act, err := ParseLine(line)
	if errors.Is(err, ErrEmptyLine) {
		return false
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return false
	}

	switch act.Kind {
	case ActQuit:
		return true
	case ActHelp:
		fmt.Fprintln(s.out, helpText)
	case ActThreads:
		s.listThreads()
	case ActView:
		t, ok := s.threads.Get(act.ThreadID)
		if !ok {
			fmt.Fprintln(s.out, "Thread gone.")
			return false
		}
		fmt.Fprintln(s.out, dialogue.RenderLog(t))
		if !t.Active {
			fmt.Fprintln(s.out, "(inactive)")
		}
	case ActRelay:
		lines, err := s.caller.Call(ctx, channelName, act.Command)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return false
		}
		for _, l := range lines {
			fmt.Fprintln(s.out, l)
		}
	}
	return false
}

func (s *Session) listThreads() {
	n := 0
	for id, t := range s.threads.ForEachActive() {
		fmt.Fprintf(s.out, "%d  @%s  %d msgs\n", id, t.DisplayHandle(), len(t.History))
		n++
	}
	if n == 0 {
		fmt.Fprintln(s.out, "No active threads.")
	}
}
