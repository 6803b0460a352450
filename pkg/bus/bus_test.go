package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/picorelay/pkg/relay"
)

func TestMessageBus_InboundOrder(t *testing.T) {
	mb := NewMessageBus()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, mb.PublishInbound(ctx, InboundMessage{Event: relay.InboundEvent{MessageID: i}}))
	}
	in, _ := mb.Pending()
	assert.Equal(t, 3, in)

	for i := 1; i <= 3; i++ {
		msg, ok := mb.ConsumeInbound(ctx)
		require.True(t, ok)
		assert.Equal(t, i, msg.Event.MessageID)
	}
}

func TestMessageBus_Outbound(t *testing.T) {
	mb := NewMessageBus()
	ctx := context.Background()

	require.NoError(t, mb.PublishOutbound(ctx, OutboundMessage{ChatID: 1, Content: "hi"}))
	msg, ok := mb.SubscribeOutbound(ctx)
	require.True(t, ok)
	assert.Equal(t, "hi", msg.Content)
}

func TestMessageBus_Close(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()
	mb.Close()

	assert.ErrorIs(t, mb.PublishInbound(context.Background(), InboundMessage{}), ErrBusClosed)
	assert.ErrorIs(t, mb.PublishOutbound(context.Background(), OutboundMessage{}), ErrBusClosed)
	_, ok := mb.ConsumeInbound(context.Background())
	assert.False(t, ok)
}

func TestMessageBus_PublishBlocksUntilContextDone(t *testing.T) {
	mb := NewMessageBus(WithBufferSize(1))
	require.NoError(t, mb.PublishInbound(context.Background(), InboundMessage{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, mb.PublishInbound(ctx, InboundMessage{}), context.DeadlineExceeded)
}

func TestMessageBus_Call(t *testing.T) {
	mb := NewMessageBus()
	ctx := context.Background()

	go func() {
		msg, ok := mb.ConsumeInbound(ctx)
		if !ok || msg.Kind != KindCommand {
			return
		}
		msg.Reply <- CommandResult{Lines: []string{"Sent to " + msg.Command.Target + "."}}
	}()

	lines, err := mb.Call(ctx, "console", relay.Command{Kind: relay.NewMessage, Target: "@bob", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Sent to @bob."}, lines)
}

func TestMessageBus_CallAfterClose(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()
	_, err := mb.Call(context.Background(), "console", relay.Command{})
	assert.ErrorIs(t, err, ErrBusClosed)
}
