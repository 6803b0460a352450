package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tinyland-inc/picorelay/pkg/relay"
)

// ActionKind is what a console line asks for.
type ActionKind int

const (
	ActRelay   ActionKind = iota // run Action.Command on the dispatcher
	ActThreads                   // list active threads
	ActView                      // print one thread's log
	ActHelp
	ActQuit
)

type Action struct {
	Kind     ActionKind
	Command  relay.Command
	ThreadID int64
}

var ErrEmptyLine = errors.New("empty line")

const helpText = `Commands:
  /msg <@handle|id> <text>   start a thread
  /reply <thread id> <text>  reply on a thread
  /info <@handle|id>         look up a profile
  /threads                   list active threads
  /view <thread id>          show a thread log
  /help                      this text
  /quit                      leave the console`

// ParseLine turns one console line into an Action.
func ParseLine(line string) (Action, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Action{}, ErrEmptyLine
	}
	if line == "exit" || line == "quit" {
		return Action{Kind: ActQuit}, nil
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "/quit", "/exit":
		return Action{Kind: ActQuit}, nil
	case "/help":
		return Action{Kind: ActHelp}, nil
	case "/threads":
		return Action{Kind: ActThreads}, nil
	case "/view":
		id, err := parseThreadID(rest)
		if err != nil {
			return Action{}, err
		}
		return Action{Kind: ActView, ThreadID: id}, nil
	case "/info":
		if rest == "" || strings.ContainsAny(rest, " \t") {
			return Action{}, fmt.Errorf("usage: /info <@handle|id>")
		}
		return Action{Kind: ActRelay, Command: relay.Command{Kind: relay.InfoLookup, Target: rest}}, nil
	case "/msg":
		target, text, ok := splitArg(rest)
		if !ok {
			return Action{}, fmt.Errorf("usage: /msg <@handle|id> <text>")
		}
		return Action{Kind: ActRelay, Command: relay.Command{Kind: relay.NewMessage, Target: target, Text: text}}, nil
	case "/reply":
		arg, text, ok := splitArg(rest)
		if !ok {
			return Action{}, fmt.Errorf("usage: /reply <thread id> <text>")
		}
		id, err := parseThreadID(arg)
		if err != nil {
			return Action{}, err
		}
		return Action{Kind: ActRelay, Command: relay.Command{Kind: relay.ReplyMessage, ThreadID: id, Text: text}}, nil
	}
	return Action{}, fmt.Errorf("unknown command %q, try /help", name)
}

func splitArg(s string) (arg, text string, ok bool) {
	arg, text, _ = strings.Cut(s, " ")
	text = strings.TrimSpace(text)
	return arg, text, arg != "" && text != ""
}

func parseThreadID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid thread id %q", s)
	}
	return id, nil
}
