package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	Idle       Status = "idle"
	Connecting Status = "connecting"
	Streaming  Status = "streaming"
	Stopping   Status = "stopping"
	Failed     Status = "failed"
)

// Active reports whether a worker is running for this status.
func (s Status) Active() bool {
	return s == Connecting || s == Streaming || s == Stopping
}

// Entry is one completed utterance as the model sees it.
type Entry struct {
	At   time.Time
	Text string
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.At.Format("15:04:05"), e.Text)
}

// Session is one start..stop run. Its fields are guarded by the owning
// Coordinator's mutex.
type Session struct {
	ID               string
	StartedAt        time.Time
	EndedAt          time.Time
	LastInterjection time.Time

	entries []Entry
}

func newSession(now time.Time) *Session {
	return &Session{ID: uuid.NewString(), StartedAt: now}
}

func (s *Session) append(e Entry) {
	s.entries = append(s.entries, e)
}

// Text is the session transcript in the form sent to the model.
func (s *Session) Text() string {
	return formatEntries(s.entries)
}

func formatEntries(entries []Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n\n")
}
