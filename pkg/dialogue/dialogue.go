// Package dialogue drives the operator's side of the bot: the /start menu,
// the multi-step prompts for new messages, replies and lookups, and the
// thread browser.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/tinyland-inc/picorelay/pkg/bus"
	"github.com/tinyland-inc/picorelay/pkg/logger"
	"github.com/tinyland-inc/picorelay/pkg/relay"
	"github.com/tinyland-inc/picorelay/pkg/thread"
	"github.com/tinyland-inc/picorelay/pkg/utils"
)

// Callback data understood by HandleCallback.
const (
	DataMessage = "msg_start"
	DataReplies = "replies_hub"
	DataInfo    = "info_dump"
	viewPrefix  = "view:"
)

// State is where an operator is in the dialogue.
type State int

const (
	Idle State = iota
	AwaitTarget
	AwaitOpener
	AwaitInfoTarget
	AwaitReply
)

func (s State) String() string {
	switch s {
	case AwaitTarget:
		return "await_target"
	case AwaitOpener:
		return "await_opener"
	case AwaitInfoTarget:
		return "await_info_target"
	case AwaitReply:
		return "await_reply"
	default:
		return "idle"
	}
}

// Executor runs operator commands.
type Executor interface {
	ResolveTarget(ctx context.Context, input string) (int64, error)
	Execute(ctx context.Context, cmd relay.Command) ([]string, error)
}

// Threads is the read-only view of stored threads.
type Threads interface {
	Get(id int64) (*thread.Thread, bool)
	ForEachActive() iter.Seq2[int64, *thread.Thread]
}

type session struct {
	state    State
	targetID int64
	threadID int64
}

// Flow holds one session per operator chat. It is owned by the dispatcher
// goroutine and is not safe for concurrent use.
type Flow struct {
	exec     Executor
	threads  Threads
	sessions map[int64]*session
}

func New(exec Executor, threads Threads) *Flow {
	return &Flow{
		exec:     exec,
		threads:  threads,
		sessions: make(map[int64]*session),
	}
}

// State reports the dialogue state of chatID.
func (f *Flow) State(chatID int64) State {
	if s, ok := f.sessions[chatID]; ok {
		return s.state
	}
	return Idle
}

func (f *Flow) session(chatID int64) *session {
	s, ok := f.sessions[chatID]
	if !ok {
		s = &session{}
		f.sessions[chatID] = s
	}
	return s
}

func (f *Flow) reset(chatID int64) {
	delete(f.sessions, chatID)
}

// Menu is the /start message.
func Menu(chatID int64) bus.OutboundMessage {
	return bus.OutboundMessage{
		ChatID:  chatID,
		Content: "What's the play?",
		Buttons: []bus.Button{
			{Label: "Message", Data: DataMessage},
			{Label: "Replies", Data: DataReplies},
			{Label: "Info", Data: DataInfo},
		},
	}
}

// HandleMessage processes a text message the operator sent in chatID.
func (f *Flow) HandleMessage(ctx context.Context, chatID int64, messageID int, text string) []bus.OutboundMessage {
	text = strings.TrimSpace(text)
	reply := func(content string) bus.OutboundMessage {
		return bus.OutboundMessage{ChatID: chatID, Content: content, ReplyTo: messageID}
	}

	switch strings.ToLower(text) {
	case "/start":
		f.reset(chatID)
		return []bus.OutboundMessage{Menu(chatID)}
	case "/cancel":
		f.reset(chatID)
		return []bus.OutboundMessage{reply("Cancelled.")}
	}

	s := f.session(chatID)
	switch s.state {
	case AwaitTarget:
		id, err := f.exec.ResolveTarget(ctx, text)
		if err != nil {
			return []bus.OutboundMessage{reply(targetProblem(err))}
		}
		s.targetID = id
		s.state = AwaitOpener
		return []bus.OutboundMessage{reply("Got it. What's the opener?")}

	case AwaitOpener:
		if text == "" {
			return []bus.OutboundMessage{reply("The opener needs some text.")}
		}
		cmd := relay.Command{Kind: relay.NewMessage, Target: strconv.FormatInt(s.targetID, 10), Text: text}
		f.reset(chatID)
		return f.run(ctx, chatID, messageID, cmd)

	case AwaitInfoTarget:
		acks, err := f.exec.Execute(ctx, relay.Command{Kind: relay.InfoLookup, Target: text})
		var tre *relay.TargetResolutionError
		if errors.As(err, &tre) {
			return []bus.OutboundMessage{reply(targetProblem(err))}
		}
		f.reset(chatID)
		return replies(chatID, messageID, acks)

	case AwaitReply:
		if text == "" {
			return []bus.OutboundMessage{reply("The reply needs some text.")}
		}
		cmd := relay.Command{Kind: relay.ReplyMessage, ThreadID: s.threadID, Text: text}
		f.reset(chatID)
		return f.run(ctx, chatID, messageID, cmd)
	}

	f.reset(chatID)
	return []bus.OutboundMessage{reply("Send /start for the menu.")}
}

func (f *Flow) run(ctx context.Context, chatID int64, messageID int, cmd relay.Command) []bus.OutboundMessage {
	acks, err := f.exec.Execute(ctx, cmd)
	if err != nil {
		logger.WarnCF("dialogue", "Command failed", map[string]any{
			"command": cmd.Kind.String(),
			"error":   err.Error(),
		})
	}
	return replies(chatID, messageID, acks)
}

func replies(chatID int64, messageID int, texts []string) []bus.OutboundMessage {
	out := make([]bus.OutboundMessage, 0, len(texts))
	for _, t := range texts {
		out = append(out, bus.OutboundMessage{ChatID: chatID, Content: t, ReplyTo: messageID})
	}
	return out
}

func targetProblem(err error) string {
	if errors.Is(err, utils.ErrInvalidTarget) || errors.Is(err, utils.ErrEmptyTarget) {
		return "Invalid target, send @username or a numeric id."
	}
	var tre *relay.TargetResolutionError
	if errors.As(err, &tre) {
		return fmt.Sprintf("Target not found: %v", tre.Err)
	}
	return fmt.Sprintf("Target not found: %v", err)
}

// HandleCallback processes an operator's button press. The returned
// messages always end with the callback acknowledgement.
func (f *Flow) HandleCallback(ctx context.Context, cb bus.Callback) []bus.OutboundMessage {
	edit := func(content string, buttons ...bus.Button) bus.OutboundMessage {
		return bus.OutboundMessage{
			ChatID:        cb.ChatID,
			EditMessageID: cb.MessageID,
			Content:       content,
			Buttons:       buttons,
		}
	}
	ack := bus.OutboundMessage{ChatID: cb.ChatID, AnswerCallback: cb.ID}

	switch {
	case cb.Data == DataMessage:
		f.reset(cb.ChatID)
		f.session(cb.ChatID).state = AwaitTarget
		return []bus.OutboundMessage{edit("Who's the target? Send @username or id."), ack}

	case cb.Data == DataInfo:
		f.reset(cb.ChatID)
		f.session(cb.ChatID).state = AwaitInfoTarget
		return []bus.OutboundMessage{edit("Lookup target? Send @username or id."), ack}

	case cb.Data == DataReplies:
		content, buttons := f.hub()
		return []bus.OutboundMessage{edit(content, buttons...), ack}

	case strings.HasPrefix(cb.Data, viewPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, viewPrefix), 10, 64)
		if err != nil {
			ack.Content = "Bad thread id."
			return []bus.OutboundMessage{ack}
		}
		content, buttons := f.view(id)
		return []bus.OutboundMessage{edit(content, buttons...), ack}

	case strings.HasPrefix(cb.Data, "reply_to_"):
		id, err := relay.ParseReplyToken(cb.Data)
		if err != nil {
			ack.Content = "Bad thread id."
			return []bus.OutboundMessage{ack}
		}
		f.reset(cb.ChatID)
		s := f.session(cb.ChatID)
		s.state = AwaitReply
		s.threadID = id
		prompt := bus.OutboundMessage{ChatID: cb.ChatID, Content: "Type your reply:", ReplyTo: cb.MessageID}
		return []bus.OutboundMessage{prompt, ack}
	}

	ack.Content = "Unknown action."
	return []bus.OutboundMessage{ack}
}

// ViewData is the callback data that opens the log of thread id.
func ViewData(id int64) string {
	return viewPrefix + strconv.FormatInt(id, 10)
}

func (f *Flow) hub() (string, []bus.Button) {
	var buttons []bus.Button
	for id, t := range f.threads.ForEachActive() {
		buttons = append(buttons, bus.Button{
			Label: fmt.Sprintf("Thread with @%s (%d msgs)", t.DisplayHandle(), len(t.History)),
			Data:  ViewData(id),
		})
	}
	if len(buttons) == 0 {
		return "No active threads.", nil
	}
	return "Active threads:", buttons
}

func (f *Flow) view(id int64) (string, []bus.Button) {
	t, ok := f.threads.Get(id)
	if !ok {
		return "Thread gone.", nil
	}
	var buttons []bus.Button
	if t.Active {
		buttons = append(buttons, bus.Button{Label: "Reply Now", Data: relay.ReplyToken(id)})
	}
	return RenderLog(t), buttons
}

// RenderLog formats a thread's history, one line per entry.
func RenderLog(t *thread.Thread) string {
	var b strings.Builder
	b.WriteString("Thread log:")
	for _, e := range t.History {
		b.WriteString("\n")
		if e.Direction == thread.FromOperator {
			b.WriteString("You: ")
		} else {
			b.WriteString("@" + t.DisplayHandle() + ": ")
		}
		b.WriteString(e.Content)
	}
	return b.String()
}
