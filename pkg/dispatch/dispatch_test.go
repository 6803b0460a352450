package dispatch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/picorelay/pkg/bus"
	"github.com/tinyland-inc/picorelay/pkg/dialogue"
	"github.com/tinyland-inc/picorelay/pkg/relay"
	"github.com/tinyland-inc/picorelay/pkg/thread"
)

type fakeRelay struct {
	match    relay.Resolution
	handled  []int64
	executed []relay.Command
}

func (f *fakeRelay) Resolve(relay.InboundEvent) relay.Resolution { return f.match }

func (f *fakeRelay) HandleInbound(_ context.Context, _ relay.InboundEvent, id int64) error {
	f.handled = append(f.handled, id)
	return nil
}

func (f *fakeRelay) Execute(_ context.Context, cmd relay.Command) ([]string, error) {
	f.executed = append(f.executed, cmd)
	return []string{"Reply sent."}, nil
}

type nopExecutor struct{}

func (nopExecutor) ResolveTarget(context.Context, string) (int64, error) { return 1, nil }
func (nopExecutor) Execute(context.Context, relay.Command) ([]string, error) {
	return []string{"ok"}, nil
}

func newDispatcher(t *testing.T, r Relay) (*Dispatcher, *bus.MessageBus) {
	t.Helper()
	store := thread.NewStore(filepath.Join(t.TempDir(), "threads.json"))
	mb := bus.NewMessageBus()
	return New(mb, r, dialogue.New(nopExecutor{}, store)), mb
}

func drain(mb *bus.MessageBus) []bus.OutboundMessage {
	var out []bus.OutboundMessage
	for {
		_, n := mb.Pending()
		if n == 0 {
			return out
		}
		m, _ := mb.SubscribeOutbound(context.Background())
		out = append(out, m)
	}
}

func TestCallbackFromStrangerIsRefused(t *testing.T) {
	d, mb := newDispatcher(t, &fakeRelay{})
	d.Handle(context.Background(), bus.InboundMessage{
		Kind:     bus.KindCallback,
		Channel:  "telegram",
		Callback: &bus.Callback{ID: "cb", SenderID: 777, Data: relay.ReplyToken(555)},
	})

	out := drain(mb)
	require.Len(t, out, 1)
	assert.Equal(t, "cb", out[0].AnswerCallback)
	assert.Equal(t, "Owner only.", out[0].Content)
	assert.Equal(t, "telegram", out[0].Channel)
}

func TestOperatorStart(t *testing.T) {
	d, mb := newDispatcher(t, &fakeRelay{})
	d.Handle(context.Background(), bus.InboundMessage{
		Kind:         bus.KindMessage,
		Channel:      "telegram",
		FromOperator: true,
		Event:        relay.InboundEvent{ChatID: 1, SenderID: 1, MessageID: 3, Text: "/start"},
	})

	out := drain(mb)
	require.Len(t, out, 1)
	assert.Len(t, out[0].Buttons, 3)
}

func TestOperatorMessagesSkipRelay(t *testing.T) {
	r := &fakeRelay{match: relay.Resolution{ThreadID: 1, Tier: relay.SenderMatch}}
	d, _ := newDispatcher(t, r)
	d.Handle(context.Background(), bus.InboundMessage{
		Kind:         bus.KindMessage,
		FromOperator: true,
		Event: relay.InboundEvent{
			ChatID: 1, SenderID: 1, Text: "hello",
			ReplyTo: &relay.ReplyRef{MessageID: 5, AuthorID: 9000},
		},
	})
	assert.Empty(t, r.handled)
}

func TestCounterpartyRouting(t *testing.T) {
	r := &fakeRelay{}
	d, _ := newDispatcher(t, r)
	ctx := context.Background()
	msg := bus.InboundMessage{Kind: bus.KindMessage, Event: relay.InboundEvent{SenderID: 555, Text: "x"}}

	d.Handle(ctx, msg)
	assert.Empty(t, r.handled)

	r.match = relay.Resolution{ThreadID: 555, Tier: relay.AnchorMatch}
	d.Handle(ctx, msg)
	assert.Equal(t, []int64{555}, r.handled)
}

func TestRunStopsOnClose(t *testing.T) {
	r := &fakeRelay{match: relay.Resolution{ThreadID: 555, Tier: relay.AnchorMatch}}
	d, mb := newDispatcher(t, r)

	done := make(chan struct{})
	go func() {
		d.Run(context.Background())
		close(done)
	}()

	require.NoError(t, mb.PublishInbound(context.Background(), bus.InboundMessage{Kind: bus.KindMessage}))
	require.Eventually(t, func() bool {
		in, _ := mb.Pending()
		return in == 0
	}, time.Second, 5*time.Millisecond)

	mb.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestCommandRunsOnDispatcher(t *testing.T) {
	r := &fakeRelay{}
	d, mb := newDispatcher(t, r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	lines, err := mb.Call(ctx, "console", relay.Command{Kind: relay.ReplyMessage, ThreadID: 555, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Reply sent."}, lines)
	require.Len(t, r.executed, 1)
	assert.Equal(t, int64(555), r.executed[0].ThreadID)
}
