// Package digest periodically sends the operator a summary of active
// threads on a cron schedule.
package digest

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/dustin/go-humanize"

	"github.com/tinyland-inc/picorelay/pkg/logger"
	"github.com/tinyland-inc/picorelay/pkg/relay"
	"github.com/tinyland-inc/picorelay/pkg/thread"
)

// Threads is the store view a digest is built from.
type Threads interface {
	ForEachActive() iter.Seq2[int64, *thread.Thread]
}

type Scheduler struct {
	cron     string
	threads  Threads
	operator relay.Operator
	now      func() time.Time
}

// NewScheduler validates cron and returns a scheduler for it.
func NewScheduler(cron string, threads Threads, operator relay.Operator) (*Scheduler, error) {
	if !gronx.IsValid(cron) {
		return nil, fmt.Errorf("invalid digest cron expression: %q", cron)
	}
	return &Scheduler{cron: cron, threads: threads, operator: operator, now: time.Now}, nil
}

// Build renders the digest as of now.
func Build(threads Threads, now time.Time) string {
	var lines []string
	for id, t := range threads.ForEachActive() {
		lines = append(lines, fmt.Sprintf("@%s (%d): %d msgs, last activity %s",
			t.DisplayHandle(), id, len(t.History), humanize.RelTime(t.LastActivity(), now, "ago", "from now")))
	}
	if len(lines) == 0 {
		return "Digest: no active threads."
	}
	return fmt.Sprintf("Digest: %d active threads\n%s", len(lines), strings.Join(lines, "\n"))
}

// Next returns the first tick strictly after t.
func (s *Scheduler) Next(t time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.cron, t, false)
}

// SendOnce delivers one digest.
func (s *Scheduler) SendOnce(ctx context.Context) error {
	return s.operator.Notify(ctx, Build(s.threads, s.now()), nil)
}

// Run sends a digest at every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	logger.InfoCF("digest", "Digest scheduler started", map[string]any{"cron": s.cron})
	for {
		next, err := s.Next(s.now())
		if err != nil {
			logger.ErrorCF("digest", "Next tick failed", map[string]any{"cron": s.cron, "error": err.Error()})
			select {
			case <-time.After(30 * time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.InfoC("digest", "Digest scheduler stopped")
			return
		case <-timer.C:
		}

		if err := s.SendOnce(ctx); err != nil {
			logger.WarnCF("digest", "Digest not delivered", map[string]any{"error": err.Error()})
		}
	}
}
