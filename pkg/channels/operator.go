package channels

import (
	"context"

	"github.com/tinyland-inc/picorelay/pkg/bus"
	"github.com/tinyland-inc/picorelay/pkg/relay"
)

// Notifier delivers relay notifications to the owner chat through the
// outbound queue.
type Notifier struct {
	bus     *bus.MessageBus
	channel string
	chatID  int64
}

func NewNotifier(mb *bus.MessageBus, channel string, chatID int64) *Notifier {
	return &Notifier{bus: mb, channel: channel, chatID: chatID}
}

// Notify implements relay.Operator.
func (n *Notifier) Notify(ctx context.Context, text string, affordance *relay.Affordance) error {
	msg := bus.OutboundMessage{
		Channel: n.channel,
		ChatID:  n.chatID,
		Content: text,
	}
	if affordance != nil {
		msg.Buttons = []bus.Button{{Label: affordance.Label, Data: affordance.Token}}
	}
	return n.bus.PublishOutbound(ctx, msg)
}

// ForwardMedia implements relay.MediaForwarder. The forward is queued
// behind any notification already published.
func (n *Notifier) ForwardMedia(ctx context.Context, fromChat int64, messageID int) error {
	return n.bus.PublishOutbound(ctx, bus.OutboundMessage{
		Channel:          n.channel,
		ChatID:           n.chatID,
		ForwardFromChat:  fromChat,
		ForwardMessageID: messageID,
	})
}
