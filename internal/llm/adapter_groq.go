package llm

import (
	"github.com/charmbracelet/log"

	"github.com/leonardotrapani/tsukkomi/internal/provider"
)

// NewGroqAdapter creates an adapter on Groq's OpenAI-compatible API
func NewGroqAdapter(cfg Config, logger *log.Logger) Adapter {
	return newChatAdapter(provider.ProviderGroq, cfg, logger)
}
