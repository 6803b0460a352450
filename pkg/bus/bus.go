// Package bus connects the platform channel to the single dispatcher
// goroutine. Inbound carries updates to be processed in arrival order;
// outbound carries operator-facing messages for the channel to deliver.
package bus

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/tinyland-inc/picorelay/pkg/relay"
)

// ErrBusClosed is returned when publishing to a closed MessageBus.
var ErrBusClosed = errors.New("message bus closed")

const defaultBufferSize = 100

// Option is a functional option for configuring a MessageBus.
type Option func(*MessageBus)

// WithBufferSize sets the capacity of both queues.
func WithBufferSize(n int) Option {
	return func(mb *MessageBus) {
		if n > 0 {
			mb.size = n
		}
	}
}

type MessageBus struct {
	size     int
	inbound  chan InboundMessage
	outbound chan OutboundMessage
	done     chan struct{}
	closed   atomic.Bool
}

func NewMessageBus(opts ...Option) *MessageBus {
	mb := &MessageBus{size: defaultBufferSize}
	for _, opt := range opts {
		opt(mb)
	}
	mb.inbound = make(chan InboundMessage, mb.size)
	mb.outbound = make(chan OutboundMessage, mb.size)
	mb.done = make(chan struct{})
	return mb
}

func (mb *MessageBus) PublishInbound(ctx context.Context, msg InboundMessage) error {
	if mb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case mb.inbound <- msg:
		return nil
	case <-mb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConsumeInbound blocks for the next inbound item. ok is false once the
// bus is closed or ctx is done.
func (mb *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg, ok := <-mb.inbound:
		return msg, ok
	case <-mb.done:
		return InboundMessage{}, false
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

func (mb *MessageBus) PublishOutbound(ctx context.Context, msg OutboundMessage) error {
	if mb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case mb.outbound <- msg:
		return nil
	case <-mb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (mb *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg, ok := <-mb.outbound:
		return msg, ok
	case <-mb.done:
		return OutboundMessage{}, false
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}

// Call queues cmd behind any pending inbound items and waits for the
// dispatcher to execute it.
func (mb *MessageBus) Call(ctx context.Context, channel string, cmd relay.Command) ([]string, error) {
	reply := make(chan CommandResult, 1)
	err := mb.PublishInbound(ctx, InboundMessage{
		Kind:         KindCommand,
		Channel:      channel,
		FromOperator: true,
		Command:      &cmd,
		Reply:        reply,
	})
	if err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.Lines, res.Err
	case <-mb.done:
		return nil, ErrBusClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pending returns the number of queued inbound and outbound items.
func (mb *MessageBus) Pending() (inbound, outbound int) {
	return len(mb.inbound), len(mb.outbound)
}

func (mb *MessageBus) Close() {
	if mb.closed.CompareAndSwap(false, true) {
		close(mb.done)
	}
}
