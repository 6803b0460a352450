package digest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/picorelay/pkg/relay"
	"github.com/tinyland-inc/picorelay/pkg/thread"
)

type recorder struct{ texts []string }

func (r *recorder) Notify(_ context.Context, text string, _ *relay.Affordance) error {
	r.texts = append(r.texts, text)
	return nil
}

func storeWith(t *testing.T) *thread.Store {
	t.Helper()
	s := thread.NewStore(filepath.Join(t.TempDir(), "threads.json"))
	require.NoError(t, s.Load())
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	bob, err := thread.New(555, "bob", 42, thread.NewOperatorEntry("hi", base))
	require.NoError(t, err)
	require.NoError(t, bob.Append(thread.NewCounterpartyEntry("yo", 7, "", base.Add(30*time.Minute))))
	require.NoError(t, s.Upsert(bob))

	dead, err := thread.New(556, "", 43, thread.NewOperatorEntry("hi", base))
	require.NoError(t, err)
	dead.Active = false
	require.NoError(t, s.Upsert(dead))
	return s
}

func TestBuild(t *testing.T) {
	s := storeWith(t)
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "Digest: 1 active threads\n@bob (555): 2 msgs, last activity 30 minutes ago", Build(s, now))
}

func TestBuild_Empty(t *testing.T) {
	s := thread.NewStore(filepath.Join(t.TempDir(), "threads.json"))
	assert.Equal(t, "Digest: no active threads.", Build(s, time.Now()))
}

func TestNewScheduler_InvalidCron(t *testing.T) {
	_, err := NewScheduler("whenever", nil, nil)
	assert.Error(t, err)
}

func TestScheduler_NextAndSend(t *testing.T) {
	rec := &recorder{}
	s, err := NewScheduler("0 9 * * *", storeWith(t), rec)
	require.NoError(t, err)

	next, err := s.Next(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)), "next tick %s", next)

	s.now = func() time.Time { return time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC) }
	require.NoError(t, s.SendOnce(context.Background()))
	require.Len(t, rec.texts, 1)
	assert.Contains(t, rec.texts[0], "@bob (555)")
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	s, err := NewScheduler("* * * * *", storeWith(t), &recorder{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
