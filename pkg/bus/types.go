package bus

import "github.com/tinyland-inc/picorelay/pkg/relay"

// Kind distinguishes the inbound items a channel can publish.
type Kind int

const (
	KindMessage  Kind = iota // a chat message, from the operator or a counterparty
	KindCallback             // an inline button press
	KindCommand              // a console command; the result goes to Reply
)

type InboundMessage struct {
	Kind    Kind   `json:"kind"`
	Channel string `json:"channel"`
	// FromOperator is set by the channel's allow-list gate. Operator
	// messages drive the dialogue and never enter the relay path.
	FromOperator bool               `json:"from_operator"`
	Event        relay.InboundEvent `json:"event"`
	Callback     *Callback          `json:"callback,omitempty"`

	Command *relay.Command       `json:"-"`
	Reply   chan<- CommandResult `json:"-"`
}

// CommandResult carries the acknowledgement lines of an executed command.
type CommandResult struct {
	Lines []string
	Err   error
}

// Callback is an inline button press.
type Callback struct {
	ID       string `json:"id"`
	SenderID int64  `json:"sender_id"`
	ChatID   int64  `json:"chat_id"`
	// MessageID is the message carrying the pressed button.
	MessageID int    `json:"message_id"`
	Data      string `json:"data"`
}

// Button is one inline keyboard button; Data comes back as Callback.Data.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  int64  `json:"chat_id"`
	Content string `json:"content"`
	// ReplyTo quotes an earlier message in ChatID when non-zero.
	ReplyTo int `json:"reply_to,omitempty"`
	// EditMessageID replaces the text of an earlier bot message instead
	// of sending a new one.
	EditMessageID int `json:"edit_message_id,omitempty"`
	// Buttons is laid out one button per row.
	Buttons []Button `json:"buttons,omitempty"`
	// AnswerCallback acknowledges a button press; Content becomes the
	// toast text and nothing else is sent.
	AnswerCallback string `json:"answer_callback,omitempty"`
	// ForwardFromChat and ForwardMessageID copy an existing message into
	// ChatID instead of sending Content.
	ForwardFromChat  int64 `json:"forward_from_chat,omitempty"`
	ForwardMessageID int   `json:"forward_message_id,omitempty"`
}
