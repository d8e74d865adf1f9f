package provider

import "strings"

// RealtimeEndpoint is the OpenAI Realtime websocket used for transcription.
const RealtimeEndpoint = "wss://api.openai.com/v1/realtime"

// OpenAIProvider implements Provider for OpenAI services
type OpenAIProvider struct{}

func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

func (p *OpenAIProvider) ValidateAPIKey(key string) bool {
	return strings.HasPrefix(key, "sk-")
}

func (p *OpenAIProvider) BaseURL() string {
	return "https://api.openai.com/v1"
}

func (p *OpenAIProvider) DefaultLLMModel() string {
	return "gpt-4o-mini"
}

func (p *OpenAIProvider) LLMModels() []string {
	return []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini"}
}
