package facilitation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/leonardotrapani/tsukkomi/internal/llm"
)

type Mode string

const (
	ModeAssertive Mode = "assertive"
	ModeGentle    Mode = "gentle"
)

// ParseMode accepts the mode names and the persona nicknames.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "assertive", "otokomae":
		return ModeAssertive, nil
	case "gentle", "otome":
		return ModeGentle, nil
	}
	return "", fmt.Errorf("unknown mode %q (want assertive or gentle)", s)
}

// Label is the persona name shown to the user.
func (m Mode) Label() string {
	if m == ModeGentle {
		return "OTO♡MEちゃん"
	}
	return "OTOKO☆MAEくん"
}

func (m Mode) systemPrompt() string {
	if m == ModeGentle {
		return gentlePrompt
	}
	return assertivePrompt
}

type Config struct {
	Mode                    Mode
	InterjectionTemperature float32
	SummaryTemperature      float32
}

func DefaultConfig() Config {
	return Config{
		Mode:                    ModeAssertive,
		InterjectionTemperature: 0.7,
		SummaryTemperature:      0.5,
	}
}

// Outcome reports one pass through the gate. When Attempted is true the
// caller must move its interjection clock to AttemptedAt, whatever the
// decision says.
type Outcome struct {
	Attempted   bool
	AttemptedAt time.Time
	Mode        Mode // persona the call was made with
	Decision    Decision
	Err         error // call or parse failure, already logged
}

// Policy decides when to ask the model for an interjection and turns its
// answer into a Decision.
type Policy struct {
	gen    llm.Adapter
	cfg    Config
	logger *log.Logger

	mu   sync.RWMutex
	mode Mode
}

func New(gen llm.Adapter, cfg Config, logger *log.Logger) *Policy {
	if logger == nil {
		logger = log.Default().WithPrefix("facilitation")
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeAssertive
	}
	return &Policy{gen: gen, cfg: cfg, logger: logger, mode: cfg.Mode}
}

func (p *Policy) Mode() Mode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mode
}

// SetMode switches persona for the next generation call. A call already in
// flight keeps the prompt it started with.
func (p *Policy) SetMode(m Mode) {
	p.mu.Lock()
	p.mode = m
	p.mu.Unlock()
	p.logger.Info("mode changed", "mode", m, "persona", m.Label())
}

// ShouldAttempt is the gate: strictly more than interval since last, and
// something to talk about.
func ShouldAttempt(text string, now, last time.Time, interval time.Duration) bool {
	return strings.TrimSpace(text) != "" && now.Sub(last) > interval
}

// MaybeGenerateInterjection asks the model once if the gate is open. Errors
// never escape: a failed call or unparsable answer yields a silent decision.
func (p *Policy) MaybeGenerateInterjection(ctx context.Context, text string, now, last time.Time, interval time.Duration) Outcome {
	if !ShouldAttempt(text, now, last, interval) {
		return Outcome{}
	}

	mode := p.Mode()
	out := Outcome{Attempted: true, AttemptedAt: now, Mode: mode}

	raw, err := p.gen.Complete(ctx, llm.Request{
		SystemPrompt: mode.systemPrompt(),
		UserText:     transcriptHeader + text,
		Temperature:  p.cfg.InterjectionTemperature,
		JSON:         true,
	})
	if err != nil {
		p.logger.Warn("interjection call failed, skipping this cycle", "mode", mode, "err", err)
		out.Err = err
		return out
	}

	decision, err := ParseDecision(raw)
	if err != nil {
		p.logger.Warn("unparsable interjection response", "err", err, "raw", raw)
		out.Err = err
		return out
	}

	out.Decision = decision
	p.logger.Debug("interjection decision",
		"mode", mode,
		"should_speak", decision.ShouldSpeak,
		"severity", decision.Severity,
		"reason", decision.Reason,
	)
	return out
}

// GenerateSummary summarizes the whole transcript. On failure it returns a
// readable error message instead of an error.
func (p *Policy) GenerateSummary(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return "要約できる文字起こしがまだありません。"
	}

	summary, err := p.gen.Complete(ctx, llm.Request{
		SystemPrompt: summaryPrompt,
		UserText:     transcriptHeader + text,
		Temperature:  p.cfg.SummaryTemperature,
	})
	if err == nil && strings.TrimSpace(summary) == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		p.logger.Error("summary failed", "err", err)
		return fmt.Sprintf("要約生成エラー: %v", err)
	}
	return summary
}
