package channels

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/tinyland-inc/picorelay/pkg/bus"
	"github.com/tinyland-inc/picorelay/pkg/logger"
	"github.com/tinyland-inc/picorelay/pkg/relay"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
	IsOperator(senderID int64, username string) bool
}

// BaseChannelOption is a functional option for configuring a BaseChannel.
type BaseChannelOption func(*BaseChannel)

// WithMaxMessageLength sets the maximum message length (in runes) for a
// channel. Longer outbound messages are split by SplitMessage. A value of
// 0 means no limit.
func WithMaxMessageLength(n int) BaseChannelOption {
	return func(c *BaseChannel) { c.maxMessageLength = n }
}

// BaseChannel holds what every platform channel shares: the bus, the
// operator allow-list and the running flag.
type BaseChannel struct {
	bus              *bus.MessageBus
	running          atomic.Bool
	name             string
	ownerID          int64
	allowList        []string
	maxMessageLength int
}

// NewBaseChannel builds a channel whose operators are ownerID plus every
// entry of allowList. Entries are numeric ids, "@username", or the
// compound "id|username" form.
func NewBaseChannel(
	name string,
	bus *bus.MessageBus,
	ownerID int64,
	allowList []string,
	opts ...BaseChannelOption,
) *BaseChannel {
	bc := &BaseChannel{
		bus:       bus,
		name:      name,
		ownerID:   ownerID,
		allowList: allowList,
	}
	for _, opt := range opts {
		opt(bc)
	}
	return bc
}

// MaxMessageLength returns the maximum message length (in runes) for this channel.
// A value of 0 means no limit.
func (c *BaseChannel) MaxMessageLength() int {
	return c.maxMessageLength
}

func (c *BaseChannel) Name() string {
	return c.name
}

// OwnerID is the chat that receives relay notifications.
func (c *BaseChannel) OwnerID() int64 {
	return c.ownerID
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

// IsOperator reports whether the sender may drive the bot. Unlike a
// general allow-list, an empty list admits only the owner.
func (c *BaseChannel) IsOperator(senderID int64, username string) bool {
	if senderID != 0 && senderID == c.ownerID {
		return true
	}
	idPart := strconv.FormatInt(senderID, 10)
	username = strings.TrimPrefix(username, "@")

	for _, allowed := range c.allowList {
		trimmed := strings.TrimPrefix(strings.TrimSpace(allowed), "@")
		allowedID := trimmed
		allowedUser := ""
		if idx := strings.Index(trimmed, "|"); idx > 0 {
			allowedID = trimmed[:idx]
			allowedUser = trimmed[idx+1:]
		}

		if idPart == allowedID ||
			(username != "" && (username == trimmed || username == allowedUser)) {
			return true
		}
	}
	return false
}

// HandleMessage tags ev with the operator gate result and queues it for
// the dispatcher.
func (c *BaseChannel) HandleMessage(ctx context.Context, ev relay.InboundEvent) {
	msg := bus.InboundMessage{
		Kind:         bus.KindMessage,
		Channel:      c.name,
		FromOperator: c.IsOperator(ev.SenderID, ev.SenderHandle),
		Event:        ev,
	}
	if err := c.bus.PublishInbound(ctx, msg); err != nil {
		logger.WarnCF(c.name, "Inbound message dropped", map[string]any{
			"sender_id":  ev.SenderID,
			"message_id": ev.MessageID,
			"error":      err.Error(),
		})
	}
}

// HandleCallback queues an inline button press.
func (c *BaseChannel) HandleCallback(ctx context.Context, cb bus.Callback, username string) {
	msg := bus.InboundMessage{
		Kind:         bus.KindCallback,
		Channel:      c.name,
		FromOperator: c.IsOperator(cb.SenderID, username),
		Callback:     &cb,
	}
	if err := c.bus.PublishInbound(ctx, msg); err != nil {
		logger.WarnCF(c.name, "Callback dropped", map[string]any{
			"sender_id": cb.SenderID,
			"error":     err.Error(),
		})
	}
}

func (c *BaseChannel) SetRunning(running bool) {
	c.running.Store(running)
}

// SplitMessage breaks content into chunks of at most limit runes,
// preferring line boundaries. Chunks that would be empty are dropped. A
// limit of 0 returns content unchanged.
func SplitMessage(content string, limit int) []string {
	runes := []rune(content)
	if limit <= 0 || len(runes) <= limit {
		return []string{content}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		if chunk := strings.TrimRight(string(runes[:cut]), "\n"); chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = runes[cut:]
	}
	if rest := strings.TrimRight(string(runes), "\n"); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}
