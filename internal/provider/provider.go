package provider

import "sort"

// Provider describes a chat completion backend used for interjections and
// summaries. Only OpenAI serves realtime transcription.
type Provider interface {
	Name() string
	ValidateAPIKey(key string) bool
	BaseURL() string
	DefaultLLMModel() string
	LLMModels() []string
}

var registry = make(map[string]Provider)

func init() {
	Register(&OpenAIProvider{})
	Register(&GroqProvider{})
}

// Register adds a provider to the registry
func Register(p Provider) {
	registry[p.Name()] = p
}

// GetProvider returns a provider by name, or nil if not found
func GetProvider(name string) Provider {
	return registry[name]
}

// ListProviders returns all registered provider names, sorted
func ListProviders() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
