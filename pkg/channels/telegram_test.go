package channels

import (
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/picorelay/pkg/bus"
	"github.com/tinyland-inc/picorelay/pkg/relay"
)

func TestInboundEventFromMessage_TextReply(t *testing.T) {
	msg := &telego.Message{
		MessageID: 100,
		From:      &telego.User{ID: 555, Username: "bob"},
		Chat:      telego.Chat{ID: 555, Type: telego.ChatTypePrivate},
		Text:      "who is this",
		ReplyToMessage: &telego.Message{
			MessageID: 42,
			From:      &telego.User{ID: 9000, IsBot: true},
		},
	}

	ev := InboundEventFromMessage(msg)
	assert.Equal(t, relay.InboundEvent{
		ChatID:       555,
		MessageID:    100,
		SenderID:     555,
		SenderHandle: "bob",
		Text:         "who is this",
		ReplyTo:      &relay.ReplyRef{MessageID: 42, AuthorID: 9000},
	}, ev)
}

func TestInboundEventFromMessage_Media(t *testing.T) {
	tests := []struct {
		name   string
		msg    telego.Message
		kind   string
		binary bool
	}{
		{name: "photo", msg: telego.Message{Photo: []telego.PhotoSize{{FileID: "a"}}}, kind: "photo", binary: true},
		{name: "voice", msg: telego.Message{Voice: &telego.Voice{FileID: "v"}}, kind: "voice", binary: true},
		{name: "document", msg: telego.Message{Document: &telego.Document{FileID: "d"}}, kind: "document", binary: true},
		{name: "location", msg: telego.Message{Location: &telego.Location{Latitude: 1, Longitude: 2}}, kind: "location"},
		{name: "text", msg: telego.Message{Text: "plain"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := InboundEventFromMessage(&tt.msg)
			assert.Equal(t, tt.kind, ev.MediaType)
			assert.Equal(t, tt.binary, ev.Binary)
			assert.Nil(t, ev.ReplyTo)
		})
	}
}

func TestInboundEventFromMessage_CaptionBecomesText(t *testing.T) {
	msg := &telego.Message{
		Photo:   []telego.PhotoSize{{FileID: "a"}},
		Caption: "look",
	}
	ev := InboundEventFromMessage(msg)
	assert.Equal(t, "Media: photo (look)", ev.Content())
}

func TestKeyboard(t *testing.T) {
	assert.Nil(t, keyboard(nil))

	kb := keyboard([]bus.Button{{Label: "Message", Data: "msg_start"}, {Label: "Info", Data: "info_dump"}})
	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "Message", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "info_dump", kb.InlineKeyboard[1][0].CallbackData)
}
