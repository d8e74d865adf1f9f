package results

import (
	"context"
	"fmt"
	"time"

	"github.com/leonardotrapani/tsukkomi/internal/facilitation"
	"github.com/leonardotrapani/tsukkomi/internal/transcriber"
)

type Kind int

const (
	KindTranscript Kind = iota
	KindInterjection
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindTranscript:
		return "transcript"
	case KindInterjection:
		return "interjection"
	case KindFailure:
		return "failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "transcript":
		*k = KindTranscript
	case "interjection":
		*k = KindInterjection
	case "failure":
		*k = KindFailure
	default:
		return fmt.Errorf("unknown message kind %q", b)
	}
	return nil
}

type Interjection struct {
	At       time.Time             `json:"at"`
	Persona  string                `json:"persona"`
	Decision facilitation.Decision `json:"decision"`
}

// Message is a tagged union; only the field matching Kind is set.
type Message struct {
	Kind         Kind                         `json:"kind"`
	SessionID    string                       `json:"session_id"`
	Transcript   *transcriber.TranscriptEvent `json:"transcript,omitempty"`
	Interjection *Interjection                `json:"interjection,omitempty"`
	Error        string                       `json:"error,omitempty"`
}

func TranscriptMessage(sessionID string, ev transcriber.TranscriptEvent) Message {
	return Message{Kind: KindTranscript, SessionID: sessionID, Transcript: &ev}
}

func InterjectionMessage(sessionID string, in Interjection) Message {
	return Message{Kind: KindInterjection, SessionID: sessionID, Interjection: &in}
}

func FailureMessage(sessionID string, err error) Message {
	return Message{Kind: KindFailure, SessionID: sessionID, Error: err.Error()}
}

// Channel is a bounded FIFO between the session worker and whoever polls
// for results. Publish and Poll are safe to call concurrently.
type Channel struct {
	ch chan Message
}

func New(capacity int) *Channel {
	if capacity <= 0 {
		capacity = 256
	}
	return &Channel{ch: make(chan Message, capacity)}
}

// Publish blocks while the channel is full. It returns false if ctx ended
// first and the message was not enqueued.
func (c *Channel) Publish(ctx context.Context, m Message) bool {
	select {
	case c.ch <- m:
		return true
	default:
	}
	select {
	case c.ch <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

// Poll removes up to max messages without blocking. max <= 0 drains
// everything currently queued.
func (c *Channel) Poll(max int) []Message {
	var out []Message
	for max <= 0 || len(out) < max {
		select {
		case m := <-c.ch:
			out = append(out, m)
		default:
			return out
		}
	}
	return out
}

// Clear drops everything queued and returns how many messages were dropped.
func (c *Channel) Clear() int {
	return len(c.Poll(0))
}

func (c *Channel) Len() int { return len(c.ch) }
func (c *Channel) Cap() int { return cap(c.ch) }
