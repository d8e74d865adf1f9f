package facilitation

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	MinSeverity = 1
	MaxSeverity = 5
)

type Reply struct {
	Comment    string `json:"comment"`
	Summary    string `json:"summary,omitempty"`
	NextAction string `json:"next_action,omitempty"`
}

// Decision is the normalized answer to "should the assistant interject now".
type Decision struct {
	ShouldSpeak bool   `json:"should_speak"`
	Reason      string `json:"reason,omitempty"`
	Reply       Reply  `json:"reply"`
	Severity    int    `json:"severity"`
}

// Actionable reports whether the decision may be shown to the user. Both
// conditions are required: a model that says "speak" with nothing to say
// stays silent.
func (d Decision) Actionable() bool {
	return d.ShouldSpeak && strings.TrimSpace(d.Reply.Comment) != ""
}

// ParseError is returned when a model response holds no usable JSON object.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse interjection decision: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// wireDecision accepts both the snake_case keys the prompts ask for and the
// camelCase keys some models answer with.
type wireDecision struct {
	ShouldSpeak      *bool           `json:"should_speak"`
	ShouldSpeakCamel *bool           `json:"shouldSpeak"`
	Reason           string          `json:"reason"`
	Reply            json.RawMessage `json:"reply"`
	Severity         json.RawMessage `json:"severity"`
}

type wireReply struct {
	Comment         string `json:"comment"`
	Tsukkomi        string `json:"tsukkomi"`
	Summary         string `json:"summary"`
	NextAction      string `json:"next_action"`
	NextActionCamel string `json:"nextAction"`
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// ParseDecision normalizes a model response into a Decision. It accepts a
// fenced code block, a bare JSON object, or a JSON object embedded in prose.
func ParseDecision(raw string) (Decision, error) {
	candidates := make([]string, 0, 3)
	trimmed := strings.TrimSpace(raw)
	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, trimmed)
	if start, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}"); start >= 0 && end > start {
		candidates = append(candidates, trimmed[start:end+1])
	}

	var lastErr error
	for _, c := range candidates {
		var w wireDecision
		if err := json.Unmarshal([]byte(c), &w); err != nil {
			lastErr = err
			continue
		}
		return w.normalize(), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("empty response")
	}
	return Decision{}, &ParseError{Raw: raw, Err: lastErr}
}

func (w wireDecision) normalize() Decision {
	d := Decision{Reason: strings.TrimSpace(w.Reason)}
	switch {
	case w.ShouldSpeak != nil:
		d.ShouldSpeak = *w.ShouldSpeak
	case w.ShouldSpeakCamel != nil:
		d.ShouldSpeak = *w.ShouldSpeakCamel
	}

	if len(w.Reply) > 0 {
		var text string
		var r wireReply
		switch {
		case json.Unmarshal(w.Reply, &text) == nil:
			d.Reply.Comment = text
		case json.Unmarshal(w.Reply, &r) == nil:
			d.Reply = Reply{
				Comment:    firstNonEmpty(r.Comment, r.Tsukkomi),
				Summary:    r.Summary,
				NextAction: firstNonEmpty(r.NextAction, r.NextActionCamel),
			}
		}
	}
	d.Reply.Comment = strings.TrimSpace(d.Reply.Comment)
	d.Severity = parseSeverity(w.Severity)
	return d
}

func parseSeverity(raw json.RawMessage) int {
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return MinSeverity
		}
		if n, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return MinSeverity
		}
	}
	return clampSeverity(int(math.Round(n)))
}

func clampSeverity(s int) int {
	if s < MinSeverity {
		return MinSeverity
	}
	if s > MaxSeverity {
		return MaxSeverity
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
