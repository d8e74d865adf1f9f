//go:build integration

package main

import (
	"context"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/leonardotrapani/tsukkomi/internal/config"
	"github.com/leonardotrapani/tsukkomi/internal/facilitation"
	"github.com/leonardotrapani/tsukkomi/internal/llm"
	"github.com/leonardotrapani/tsukkomi/internal/provider"
	"github.com/leonardotrapani/tsukkomi/internal/recording"
	"github.com/leonardotrapani/tsukkomi/internal/transcriber"
)

const testTimeout = 45 * time.Second

const testTranscript = `[10:00:01] では来期の予算について話しましょう

[10:00:20] その前に先週のゴルフの話なんですけど

[10:01:05] いやあ、あのホールは難しかったですね

[10:02:30] 結局予算はどうしますか、誰も決めてないですよね`

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	path, err := config.GetConfigPath()
	if err != nil {
		return config.DefaultConfig()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Logf("warning: could not load config: %v", err)
		return config.DefaultConfig()
	}
	return cfg
}

func TestFacilitationModels(t *testing.T) {
	cfg := loadTestConfig(t)

	for _, name := range provider.ListProviders() {
		p := provider.GetProvider(name)
		key := cfg.ResolveAPIKey(name)
		for _, model := range p.LLMModels() {
			t.Run(name+"/"+model, func(t *testing.T) {
				if key == "" {
					t.Skipf("no API key for %s", name)
				}
				gen, err := llm.NewAdapter(llm.Config{Provider: name, APIKey: key, Model: model}, log.Default())
				if err != nil {
					t.Fatalf("adapter: %v", err)
				}

				for _, mode := range []facilitation.Mode{facilitation.ModeAssertive, facilitation.ModeGentle} {
					fc := facilitation.DefaultConfig()
					fc.Mode = mode
					policy := facilitation.New(gen, fc, log.Default())

					ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
					now := time.Now()
					out := policy.MaybeGenerateInterjection(ctx, testTranscript, now, time.Time{}, time.Minute)
					cancel()

					if !out.Attempted {
						t.Fatalf("%s: expected an attempt", mode)
					}
					if out.Err != nil {
						t.Fatalf("%s: %v", mode, out.Err)
					}
					t.Logf("%s: speak=%v severity=%d comment=%q", mode, out.Decision.ShouldSpeak, out.Decision.Severity, out.Decision.Reply.Comment)
				}

				ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
				defer cancel()
				summary := facilitation.New(gen, facilitation.DefaultConfig(), log.Default()).GenerateSummary(ctx, testTranscript)
				if summary == "" {
					t.Fatal("empty summary")
				}
			})
		}
	}
}

func TestRealtimeHandshake(t *testing.T) {
	cfg := loadTestConfig(t)
	rc := cfg.ToRealtimeConfig()
	if rc.APIKey == "" {
		t.Skip("no OpenAI API key")
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	conn, err := transcriber.Connect(ctx, rc, log.Default())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	// two seconds of silence in 1024-sample frames
	frame := make([]byte, 1024*2)
	for i := 0; i < rc.InputSampleRate*2/1024; i++ {
		if err := conn.SendFrame(recording.AudioFrame{Data: frame, Timestamp: time.Now()}); err != nil {
			t.Fatalf("send frame %d: %v", i, err)
		}
		time.Sleep(40 * time.Millisecond)
	}

	select {
	case ev, ok := <-conn.Events():
		if ok && ev.Err != nil {
			t.Fatalf("server error: %v", ev.Err)
		}
	case <-time.After(2 * time.Second):
	}

	if err := conn.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
}
