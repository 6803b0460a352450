package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/picorelay/pkg/relay"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want Action
	}{
		{"/msg @bob hey there", Action{Kind: ActRelay, Command: relay.Command{Kind: relay.NewMessage, Target: "@bob", Text: "hey there"}}},
		{"/msg 555 hi", Action{Kind: ActRelay, Command: relay.Command{Kind: relay.NewMessage, Target: "555", Text: "hi"}}},
		{"  /reply 555  sure  ", Action{Kind: ActRelay, Command: relay.Command{Kind: relay.ReplyMessage, ThreadID: 555, Text: "sure"}}},
		{"/info @bob", Action{Kind: ActRelay, Command: relay.Command{Kind: relay.InfoLookup, Target: "@bob"}}},
		{"/threads", Action{Kind: ActThreads}},
		{"/view 555", Action{Kind: ActView, ThreadID: 555}},
		{"/help", Action{Kind: ActHelp}},
		{"/quit", Action{Kind: ActQuit}},
		{"exit", Action{Kind: ActQuit}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLine_Errors(t *testing.T) {
	_, err := ParseLine("   ")
	assert.ErrorIs(t, err, ErrEmptyLine)

	for _, line := range []string{
		"/msg @bob",
		"/msg",
		"/reply abc hi",
		"/reply 555",
		"/reply 0 hi",
		"/info",
		"/info @a @b",
		"/view x",
		"/frobnicate",
		"hello",
	} {
		_, err := ParseLine(line)
		assert.Error(t, err, line)
	}
}
