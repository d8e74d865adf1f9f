package session

import (
	"testing"
	"time"
)

func TestFormatEntries(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 5, 7, 0, time.Local)
	tests := []struct {
		name    string
		entries []Entry
		want    string
	}{
		{"empty", nil, ""},
		{"single", []Entry{{At: at, Text: "おはようございます"}}, "[09:05:07] おはようございます"},
		{
			"joined by blank line",
			[]Entry{{At: at, Text: "a"}, {At: at.Add(61 * time.Second), Text: "b"}},
			"[09:05:07] a\n\n[09:06:08] b",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatEntries(tc.entries); got != tc.want {
				t.Errorf("formatEntries() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewSessionHasUniqueID(t *testing.T) {
	now := time.Now()
	a, b := newSession(now), newSession(now)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids %q and %q", a.ID, b.ID)
	}
	if !a.StartedAt.Equal(now) {
		t.Errorf("StartedAt = %v", a.StartedAt)
	}
}

func TestStatusActive(t *testing.T) {
	for status, want := range map[Status]bool{
		Idle: false, Connecting: true, Streaming: true, Stopping: true, Failed: false,
	} {
		if got := status.Active(); got != want {
			t.Errorf("%s.Active() = %v, want %v", status, got, want)
		}
	}
}
