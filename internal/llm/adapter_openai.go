package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"

	"github.com/leonardotrapani/tsukkomi/internal/provider"
)

// chatAdapter implements Adapter on any OpenAI-compatible chat completions API.
type chatAdapter struct {
	name   string
	client *openai.Client
	model  string
	logger *log.Logger
}

// NewOpenAIAdapter creates a new OpenAI LLM adapter
func NewOpenAIAdapter(cfg Config, logger *log.Logger) Adapter {
	return newChatAdapter(provider.ProviderOpenAI, cfg, logger)
}

func newChatAdapter(name string, cfg Config, logger *log.Logger) *chatAdapter {
	p := provider.GetProvider(name)

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		clientConfig.BaseURL = cfg.BaseURL
	case p != nil && p.BaseURL() != "":
		clientConfig.BaseURL = p.BaseURL()
	}

	model := cfg.Model
	if model == "" && p != nil {
		model = p.DefaultLLMModel()
	}
	if logger == nil {
		logger = log.Default().WithPrefix("llm")
	}

	return &chatAdapter{
		name:   name,
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger.With("provider", name),
	}
}

func (a *chatAdapter) Complete(ctx context.Context, r Request) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: r.UserText},
		},
		Temperature: r.Temperature,
	}
	if r.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		a.logger.Error("chat completion failed", "model", a.model, "after", duration, "err", err)
		return "", fmt.Errorf("%s chat completion: %w", a.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat completion: no response choices", a.name)
	}

	result := resp.Choices[0].Message.Content
	a.logger.Debug("chat completion", "model", a.model, "took", duration, "chars", len(result))
	return result, nil
}
