// Package dispatch runs the single goroutine that processes inbound
// updates one at a time, routing counterparty messages to the relay engine
// and operator input to the dialogue flow.
package dispatch

import (
	"context"

	"github.com/tinyland-inc/picorelay/pkg/bus"
	"github.com/tinyland-inc/picorelay/pkg/dialogue"
	"github.com/tinyland-inc/picorelay/pkg/logger"
	"github.com/tinyland-inc/picorelay/pkg/relay"
)

// Relay is the part of the engine the dispatcher drives.
type Relay interface {
	Resolve(ev relay.InboundEvent) relay.Resolution
	HandleInbound(ctx context.Context, ev relay.InboundEvent, threadID int64) error
	Execute(ctx context.Context, cmd relay.Command) ([]string, error)
}

type Dispatcher struct {
	bus    *bus.MessageBus
	relay  Relay
	flow   *dialogue.Flow
	denied string
}

func New(mb *bus.MessageBus, r Relay, flow *dialogue.Flow) *Dispatcher {
	return &Dispatcher{
		bus:    mb,
		relay:  r,
		flow:   flow,
		denied: "Owner only.",
	}
}

// Run consumes the inbound queue until ctx is done or the bus closes.
func (d *Dispatcher) Run(ctx context.Context) {
	logger.InfoC("dispatch", "Dispatcher started")
	for {
		msg, ok := d.bus.ConsumeInbound(ctx)
		if !ok {
			logger.InfoC("dispatch", "Dispatcher stopped")
			return
		}
		d.Handle(ctx, msg)
	}
}

// Handle processes one inbound item to completion.
func (d *Dispatcher) Handle(ctx context.Context, msg bus.InboundMessage) {
	switch msg.Kind {
	case bus.KindCallback:
		d.handleCallback(ctx, msg)
	case bus.KindMessage:
		if msg.FromOperator {
			d.handleOperator(ctx, msg)
			return
		}
		d.handleCounterparty(ctx, msg)
	case bus.KindCommand:
		d.handleCommand(ctx, msg)
	default:
		logger.WarnCF("dispatch", "Unknown inbound kind", map[string]any{"kind": int(msg.Kind)})
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, msg bus.InboundMessage) {
	cb := msg.Callback
	if cb == nil {
		return
	}
	if !msg.FromOperator {
		logger.InfoCF("dispatch", "Callback from non-operator refused", map[string]any{
			"sender_id": cb.SenderID,
			"data":      cb.Data,
		})
		d.publish(ctx, msg.Channel, []bus.OutboundMessage{{AnswerCallback: cb.ID, Content: d.denied}})
		return
	}
	d.publish(ctx, msg.Channel, d.flow.HandleCallback(ctx, *cb))
}

func (d *Dispatcher) handleOperator(ctx context.Context, msg bus.InboundMessage) {
	ev := msg.Event
	if ev.MediaType != "" {
		logger.DebugCF("dispatch", "Ignoring operator media", map[string]any{"media": ev.MediaType})
		return
	}
	d.publish(ctx, msg.Channel, d.flow.HandleMessage(ctx, ev.ChatID, ev.MessageID, ev.Text))
}

func (d *Dispatcher) handleCounterparty(ctx context.Context, msg bus.InboundMessage) {
	ev := msg.Event
	res := d.relay.Resolve(ev)
	if !res.Matched() {
		logger.DebugCF("dispatch", "Inbound message matches no thread", map[string]any{
			"sender_id":  ev.SenderID,
			"message_id": ev.MessageID,
		})
		return
	}
	if err := d.relay.HandleInbound(ctx, ev, res.ThreadID); err != nil {
		logger.WarnCF("dispatch", "Inbound handling incomplete", map[string]any{
			"thread_id": res.ThreadID,
			"tier":      res.Tier.String(),
			"error":     err.Error(),
		})
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, msg bus.InboundMessage) {
	if msg.Command == nil || msg.Reply == nil {
		return
	}
	lines, err := d.relay.Execute(ctx, *msg.Command)
	msg.Reply <- bus.CommandResult{Lines: lines, Err: err}
}

func (d *Dispatcher) publish(ctx context.Context, channel string, out []bus.OutboundMessage) {
	for _, m := range out {
		m.Channel = channel
		if err := d.bus.PublishOutbound(ctx, m); err != nil {
			logger.ErrorCF("dispatch", "Dropping outbound message", map[string]any{
				"chat_id": m.ChatID,
				"error":   err.Error(),
			})
			return
		}
	}
}
