// Package thread holds the relay's conversation state: one Thread per
// counterparty, each carrying an append-only history of Entries, and the
// Store that mirrors the whole set to a single JSON document on disk.
package thread

import (
	"errors"
	"time"
)

// Direction tells who authored an Entry.
type Direction string

const (
	FromOperator     Direction = "operator"
	FromCounterparty Direction = "counterparty"
)

// DefaultHandle is rendered when a counterparty has no public handle.
const DefaultHandle = "anon"

var (
	ErrEmptyHistory   = errors.New("thread: history must not be empty")
	ErrMissingID      = errors.New("thread: counterparty id is required")
	ErrDirectionField = errors.New("thread: message id is only valid on counterparty entries")
)

// Entry is one logged message. MessageID is set only on counterparty
// entries; it becomes the anchor for the operator's next reply.
type Entry struct {
	Direction Direction `json:"direction"`
	Content   string    `json:"content"`
	MessageID *int      `json:"msg_id,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOperatorEntry builds an operator-authored entry.
func NewOperatorEntry(content string, at time.Time) Entry {
	return Entry{Direction: FromOperator, Content: content, Timestamp: at}
}

// NewCounterpartyEntry builds a counterparty-authored entry. mediaType is
// empty for plain text.
func NewCounterpartyEntry(content string, messageID int, mediaType string, at time.Time) Entry {
	id := messageID
	return Entry{
		Direction: FromCounterparty,
		Content:   content,
		MessageID: &id,
		MediaType: mediaType,
		Timestamp: at,
	}
}

// IsMedia reports whether the entry stands in for a non-text payload.
func (e Entry) IsMedia() bool { return e.MediaType != "" }

// canonicalTime is the form timestamps take after a JSON round trip: UTC
// with no monotonic reading.
func canonicalTime(t time.Time) time.Time {
	return t.UTC().Round(0)
}

func (e Entry) validate() error {
	if e.Direction == FromOperator && e.MessageID != nil {
		return ErrDirectionField
	}
	return nil
}

// Thread is the conversation state for one counterparty identity.
type Thread struct {
	CounterpartyID    int64   `json:"counterparty_id"`
	Handle            string  `json:"handle,omitempty"`
	LastSentMessageID int     `json:"sent_id"`
	History           []Entry `json:"history"`
	Active            bool    `json:"active"`
}

// New creates an active thread whose history starts with first.
func New(counterpartyID int64, handle string, sentMessageID int, first Entry) (*Thread, error) {
	if counterpartyID == 0 {
		return nil, ErrMissingID
	}
	if err := first.validate(); err != nil {
		return nil, err
	}
	first.Timestamp = canonicalTime(first.Timestamp)
	return &Thread{
		CounterpartyID:    counterpartyID,
		Handle:            handle,
		LastSentMessageID: sentMessageID,
		History:           []Entry{first},
		Active:            true,
	}, nil
}

// Append adds e to the history. Timestamps are stored in UTC and never go
// backwards: an entry stamped earlier than the current tail is clamped to
// the tail's time.
func (t *Thread) Append(e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	e.Timestamp = canonicalTime(e.Timestamp)
	if n := len(t.History); n > 0 {
		if last := t.History[n-1].Timestamp; e.Timestamp.Before(last) {
			e.Timestamp = last
		}
	}
	t.History = append(t.History, e)
	return nil
}

// Last returns the most recent entry.
func (t *Thread) Last() (Entry, bool) {
	if len(t.History) == 0 {
		return Entry{}, false
	}
	return t.History[len(t.History)-1], true
}

// ReplyAnchor returns the message id the next operator send should reply
// to: the last entry's id when the counterparty spoke last, nothing when
// the operator is sending consecutively.
func (t *Thread) ReplyAnchor() (int, bool) {
	last, ok := t.Last()
	if !ok || last.Direction != FromCounterparty || last.MessageID == nil {
		return 0, false
	}
	return *last.MessageID, true
}

// DisplayHandle returns the handle or DefaultHandle.
func (t *Thread) DisplayHandle() string {
	if t.Handle == "" {
		return DefaultHandle
	}
	return t.Handle
}

// LastActivity is the timestamp of the newest entry.
func (t *Thread) LastActivity() time.Time {
	last, _ := t.Last()
	return last.Timestamp
}

// MediaLog lists the placeholder labels of media entries, oldest first.
func (t *Thread) MediaLog() []string {
	var out []string
	for _, e := range t.History {
		if e.IsMedia() {
			out = append(out, e.Content)
		}
	}
	return out
}

// Clone returns a deep copy, so callers can mutate without touching the
// store's record.
func (t *Thread) Clone() *Thread {
	if t == nil {
		return nil
	}
	c := *t
	c.History = make([]Entry, len(t.History))
	for i, e := range t.History {
		if e.MessageID != nil {
			id := *e.MessageID
			e.MessageID = &id
		}
		c.History[i] = e
	}
	return &c
}

func (t *Thread) validate() error {
	if t.CounterpartyID == 0 {
		return ErrMissingID
	}
	if len(t.History) == 0 {
		return ErrEmptyHistory
	}
	for _, e := range t.History {
		if err := e.validate(); err != nil {
			return err
		}
	}
	return nil
}
