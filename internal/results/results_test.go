package results

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/leonardotrapani/tsukkomi/internal/facilitation"
	"github.com/leonardotrapani/tsukkomi/internal/transcriber"
)

func transcript(seq uint64, text string) Message {
	return TranscriptMessage("s1", transcriber.TranscriptEvent{Seq: seq, Text: text})
}

func TestPollFIFOAndLimit(t *testing.T) {
	c := New(8)
	ctx := context.Background()
	for i := uint64(1); i <= 5; i++ {
		c.Publish(ctx, transcript(i, "x"))
	}

	first := c.Poll(2)
	if len(first) != 2 || first[0].Transcript.Seq != 1 || first[1].Transcript.Seq != 2 {
		t.Fatalf("Poll(2) = %+v", first)
	}
	rest := c.Poll(0)
	if len(rest) != 3 || rest[0].Transcript.Seq != 3 || rest[2].Transcript.Seq != 5 {
		t.Fatalf("Poll(0) = %+v", rest)
	}
	if got := c.Poll(0); len(got) != 0 {
		t.Errorf("Poll on empty channel = %+v", got)
	}
}

func TestPublishBlocksUntilSpace(t *testing.T) {
	c := New(1)
	ctx := context.Background()
	c.Publish(ctx, transcript(1, "a"))

	published := make(chan bool)
	go func() { published <- c.Publish(ctx, transcript(2, "b")) }()

	select {
	case <-published:
		t.Fatal("Publish did not block on a full channel")
	case <-time.After(50 * time.Millisecond):
	}

	c.Poll(1)
	select {
	case ok := <-published:
		if !ok {
			t.Error("Publish returned false after space freed")
		}
	case <-time.After(time.Second):
		t.Fatal("Publish still blocked after Poll")
	}
}

func TestPublishGivesUpOnCancel(t *testing.T) {
	c := New(1)
	c.Publish(context.Background(), transcript(1, "a"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if c.Publish(ctx, transcript(2, "b")) {
		t.Error("Publish succeeded on a full channel after cancel")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestClear(t *testing.T) {
	c := New(4)
	ctx := context.Background()
	c.Publish(ctx, transcript(1, "a"))
	c.Publish(ctx, FailureMessage("s1", errors.New("boom")))

	if n := c.Clear(); n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
}

func TestConcurrentProducerAndPoller(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 200).Draw(t, "n")
		capacity := rapid.IntRange(1, 16).Draw(t, "capacity")
		batch := rapid.IntRange(0, 8).Draw(t, "batch")

		c := New(capacity)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 1; i <= n; i++ {
				c.Publish(context.Background(), transcript(uint64(i), "x"))
			}
		}()

		var got []uint64
		deadline := time.Now().Add(5 * time.Second)
		for len(got) < n && time.Now().Before(deadline) {
			for _, m := range c.Poll(batch) {
				got = append(got, m.Transcript.Seq)
			}
		}
		wg.Wait()

		if len(got) != n {
			t.Fatalf("received %d messages, want %d", len(got), n)
		}
		for i, seq := range got {
			if seq != uint64(i+1) {
				t.Fatalf("message %d has seq %d", i, seq)
			}
		}
	})
}

func TestMessageJSON(t *testing.T) {
	m := InterjectionMessage("s1", Interjection{
		At:      time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
		Persona: "OTOKO☆MAEくん",
		Decision: facilitation.Decision{
			ShouldSpeak: true,
			Reply:       facilitation.Reply{Comment: "本当に大丈夫？"},
			Severity:    3,
		},
	})

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if raw["kind"] != "interjection" {
		t.Errorf("kind = %v", raw["kind"])
	}
	if _, ok := raw["transcript"]; ok {
		t.Error("transcript field present on an interjection")
	}

	var back Message
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal Message: %v", err)
	}
	if back.Kind != KindInterjection || back.Interjection.Decision.Severity != 3 {
		t.Errorf("decoded = %+v", back)
	}
}
