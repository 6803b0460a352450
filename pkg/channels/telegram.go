package channels

import (
	"context"
	"fmt"
	"sync"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/tinyland-inc/picorelay/pkg/bus"
	"github.com/tinyland-inc/picorelay/pkg/logger"
	"github.com/tinyland-inc/picorelay/pkg/relay"
)

const telegramMessageLimit = 4096

// TelegramChannel turns long-polled updates into bus items and delivers
// outbound bus messages.
type TelegramChannel struct {
	*BaseChannel
	client *TelegramClient

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTelegramChannel(client *TelegramClient, mb *bus.MessageBus, ownerID int64, allowFrom []string) *TelegramChannel {
	return &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram", mb, ownerID, allowFrom,
			WithMaxMessageLength(telegramMessageLimit)),
		client: client,
	}
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	updates, err := c.client.Bot().UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}
	c.cancel = cancel
	c.SetRunning(true)

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		for update := range updates {
			c.handleUpdate(ctx, update)
		}
	}()
	go func() {
		defer c.wg.Done()
		c.deliverLoop(ctx)
	}()

	logger.InfoC("telegram", "Telegram channel started")
	return nil
}

func (c *TelegramChannel) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.SetRunning(false)
	logger.InfoC("telegram", "Telegram channel stopped")
	return nil
}

func (c *TelegramChannel) handleUpdate(ctx context.Context, update telego.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat.Type != telego.ChatTypePrivate {
			return
		}
		c.client.Observe(msg.From)
		c.HandleMessage(ctx, InboundEventFromMessage(msg))

	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		cb := bus.Callback{ID: q.ID, SenderID: q.From.ID, Data: q.Data}
		if q.Message != nil {
			cb.ChatID = q.Message.GetChat().ID
			cb.MessageID = q.Message.GetMessageID()
		}
		c.HandleCallback(ctx, cb, q.From.Username)
	}
}

// InboundEventFromMessage maps a Telegram message onto a relay event.
func InboundEventFromMessage(msg *telego.Message) relay.InboundEvent {
	ev := relay.InboundEvent{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}
	if msg.From != nil {
		ev.SenderID = msg.From.ID
		ev.SenderHandle = msg.From.Username
	}
	if ev.Text == "" {
		ev.Text = msg.Caption
	}
	ev.MediaType, ev.Binary = mediaKind(msg)

	if r := msg.ReplyToMessage; r != nil {
		ref := &relay.ReplyRef{MessageID: r.MessageID}
		if r.From != nil {
			ref.AuthorID = r.From.ID
		}
		ev.ReplyTo = ref
	}
	return ev
}

func mediaKind(msg *telego.Message) (string, bool) {
	switch {
	case len(msg.Photo) > 0:
		return "photo", true
	case msg.Video != nil:
		return "video", true
	case msg.Document != nil:
		return "document", true
	case msg.Voice != nil:
		return "voice", true
	case msg.Audio != nil:
		return "audio", true
	case msg.Animation != nil:
		return "animation", true
	case msg.VideoNote != nil:
		return "video_note", true
	case msg.Sticker != nil:
		return "sticker", true
	case msg.Location != nil:
		return "location", false
	case msg.Contact != nil:
		return "contact", false
	}
	return "", false
}

func (c *TelegramChannel) deliverLoop(ctx context.Context) {
	for {
		msg, ok := c.bus.SubscribeOutbound(ctx)
		if !ok {
			return
		}
		if err := c.Send(ctx, msg); err != nil {
			logger.WarnCF("telegram", "Outbound delivery failed", map[string]any{
				"chat_id": msg.ChatID,
				"error":   err.Error(),
			})
		}
	}
}

// Send delivers one outbound bus message.
func (c *TelegramChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	bot := c.client.Bot()

	if msg.AnswerCallback != "" {
		params := tu.CallbackQuery(msg.AnswerCallback)
		if msg.Content != "" {
			params = params.WithText(msg.Content)
		}
		return bot.AnswerCallbackQuery(ctx, params)
	}

	if msg.ForwardMessageID != 0 {
		return c.client.Forward(ctx, msg.ChatID, msg.ForwardFromChat, msg.ForwardMessageID)
	}

	markup := keyboard(msg.Buttons)

	if msg.EditMessageID != 0 && len([]rune(msg.Content)) <= c.MaxMessageLength() {
		params := &telego.EditMessageTextParams{
			ChatID:    tu.ID(msg.ChatID),
			MessageID: msg.EditMessageID,
			Text:      msg.Content,
		}
		if markup != nil {
			params.ReplyMarkup = markup
		}
		_, err := bot.EditMessageText(ctx, params)
		return err
	}

	chunks := SplitMessage(msg.Content, c.MaxMessageLength())
	for i, chunk := range chunks {
		params := tu.Message(tu.ID(msg.ChatID), chunk)
		if i == 0 && msg.ReplyTo != 0 {
			params = params.WithReplyParameters(&telego.ReplyParameters{
				MessageID:                msg.ReplyTo,
				AllowSendingWithoutReply: true,
			})
		}
		if i == len(chunks)-1 && markup != nil {
			params = params.WithReplyMarkup(markup)
		}
		if _, err := bot.SendMessage(ctx, params); err != nil {
			return err
		}
	}
	return nil
}

func keyboard(buttons []bus.Button) *telego.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]telego.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, tu.InlineKeyboardRow(tu.InlineKeyboardButton(b.Label).WithCallbackData(b.Data)))
	}
	return tu.InlineKeyboard(rows...)
}
