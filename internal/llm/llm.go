package llm

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/leonardotrapani/tsukkomi/internal/provider"
)

// Request is one single-shot chat completion.
type Request struct {
	SystemPrompt string
	UserText     string
	Temperature  float32
	JSON         bool // ask the model for a JSON object
}

// Adapter runs chat completions against one provider.
type Adapter interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config holds LLM adapter configuration
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string // overrides the provider endpoint when set
}

// NewAdapter creates an LLM adapter based on the provider
func NewAdapter(cfg Config, logger *log.Logger) (Adapter, error) {
	if logger == nil {
		logger = log.Default().WithPrefix("llm")
	}
	switch cfg.Provider {
	case provider.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return NewOpenAIAdapter(cfg, logger), nil
	case provider.ProviderGroq:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Groq API key required")
		}
		return NewGroqAdapter(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
