package relay

import (
	"iter"

	"github.com/tinyland-inc/picorelay/pkg/thread"
)

// Tier tells how an inbound event was matched to a thread.
type Tier int

const (
	NoMatch Tier = iota
	// AnchorMatch: the event replies to the thread's last operator send.
	AnchorMatch
	// SenderMatch: no anchor matched; the sender's own active thread was
	// used instead.
	SenderMatch
)

func (t Tier) String() string {
	switch t {
	case AnchorMatch:
		return "anchor"
	case SenderMatch:
		return "sender"
	default:
		return "none"
	}
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	ThreadID int64
	Tier     Tier
}

// Matched reports whether the event belongs to a thread.
func (r Resolution) Matched() bool { return r.Tier != NoMatch }

// Resolver maps inbound events to threads.
type Resolver struct {
	botID            int64
	fallbackToSender bool
}

// NewResolver builds a resolver for the bot identity botID. With
// fallbackToSender, a reply to the bot whose anchor matches no thread is
// bucketed into the sender's own active thread, if any.
func NewResolver(botID int64, fallbackToSender bool) *Resolver {
	return &Resolver{botID: botID, fallbackToSender: fallbackToSender}
}

// BotID returns the bot identity replies must target.
func (r *Resolver) BotID() int64 { return r.botID }

// Resolve finds the thread ev belongs to among active. It depends only on
// the replied-to message id, the sender and the active threads given.
func (r *Resolver) Resolve(ev InboundEvent, active iter.Seq2[int64, *thread.Thread]) Resolution {
	if ev.ReplyTo == nil || ev.ReplyTo.AuthorID != r.botID {
		return Resolution{}
	}

	senderActive := false
	for id, t := range active {
		if !t.Active {
			continue
		}
		if t.LastSentMessageID == ev.ReplyTo.MessageID {
			return Resolution{ThreadID: id, Tier: AnchorMatch}
		}
		if id == ev.SenderID {
			senderActive = true
		}
	}

	if r.fallbackToSender && senderActive {
		return Resolution{ThreadID: ev.SenderID, Tier: SenderMatch}
	}
	return Resolution{}
}
