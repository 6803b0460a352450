// Package relay is the conversation relay engine: it resolves inbound
// counterparty messages to threads by reply linkage, appends them to the
// thread history, notifies the operator, and sends the operator's messages
// back out.
package relay

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ReplyRef is the message an inbound event replies to.
type ReplyRef struct {
	MessageID int
	AuthorID  int64
}

// InboundEvent is one message received from the platform.
type InboundEvent struct {
	ChatID       int64
	MessageID    int
	SenderID     int64
	SenderHandle string
	Text         string
	// MediaType is empty for plain text, otherwise the payload kind
	// ("photo", "voice", "location", ...).
	MediaType string
	// Binary is true when the payload carries file content that should be
	// forwarded rather than described.
	Binary  bool
	ReplyTo *ReplyRef
}

// Content returns the text logged for the event: the text itself, or a
// placeholder label for media.
func (ev InboundEvent) Content() string {
	if ev.MediaType == "" {
		return ev.Text
	}
	label := "Media: " + ev.MediaType
	if caption := strings.TrimSpace(ev.Text); caption != "" {
		label += " (" + caption + ")"
	}
	return label
}

// Platform is the messaging platform as seen by the engine.
type Platform interface {
	// ResolveHandle turns "@name" into a numeric identity.
	ResolveHandle(ctx context.Context, handle string) (int64, error)
	// Handle returns the public username for id, empty when it has none.
	Handle(ctx context.Context, id int64) (string, error)
	// Send delivers text to target. replyTo of zero sends without a
	// reply relation. It returns the platform id of the sent message.
	Send(ctx context.Context, target int64, text string, replyTo int) (int, error)
	// Forward copies a message unmodified into target's chat.
	Forward(ctx context.Context, target, fromChat int64, messageID int) error
}

// Affordance is a single quick-action button attached to a notification.
type Affordance struct {
	Label string
	Token string
}

// Operator receives relay notifications.
type Operator interface {
	Notify(ctx context.Context, text string, affordance *Affordance) error
}

// MediaForwarder is implemented by operators that deliver notifications
// through a queue. Forwards then travel the same queue and arrive after
// the summary that announced them.
type MediaForwarder interface {
	ForwardMedia(ctx context.Context, fromChat int64, messageID int) error
}

// Pacer delays outbound sends.
type Pacer interface {
	Wait(ctx context.Context) error
}

const replyTokenPrefix = "reply_to_"

// ReplyToken is the affordance token that opens a reply on threadID.
func ReplyToken(threadID int64) string {
	return replyTokenPrefix + strconv.FormatInt(threadID, 10)
}

// ParseReplyToken extracts the thread id from a ReplyToken.
func ParseReplyToken(token string) (int64, error) {
	rest, ok := strings.CutPrefix(token, replyTokenPrefix)
	if !ok {
		return 0, fmt.Errorf("not a reply token: %q", token)
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("reply token %q: %w", token, err)
	}
	return id, nil
}
