package provider

import (
	"slices"
	"testing"
)

func TestProviderInterface(t *testing.T) {
	providers := []struct {
		name            string
		defaultLLMModel string
		baseURL         string
		envVar          string
		validKey        string
		invalidKey      string
	}{
		{"openai", "gpt-4o-mini", "https://api.openai.com/v1", "OPENAI_API_KEY", "sk-abc", "gsk_abc"},
		{"groq", "llama-3.3-70b-versatile", "https://api.groq.com/openai/v1", "GROQ_API_KEY", "gsk_abc", "sk-abc"},
	}

	for _, tc := range providers {
		t.Run(tc.name, func(t *testing.T) {
			p := GetProvider(tc.name)
			if p == nil {
				t.Fatalf("GetProvider(%q) returned nil", tc.name)
			}
			if p.Name() != tc.name {
				t.Errorf("Name() = %q, want %q", p.Name(), tc.name)
			}
			if p.DefaultLLMModel() != tc.defaultLLMModel {
				t.Errorf("DefaultLLMModel() = %q, want %q", p.DefaultLLMModel(), tc.defaultLLMModel)
			}
			if !slices.Contains(p.LLMModels(), p.DefaultLLMModel()) {
				t.Errorf("default model %q missing from LLMModels()", p.DefaultLLMModel())
			}
			if p.BaseURL() != tc.baseURL {
				t.Errorf("BaseURL() = %q, want %q", p.BaseURL(), tc.baseURL)
			}
			if got := EnvVarForProvider(tc.name); got != tc.envVar {
				t.Errorf("EnvVarForProvider() = %q, want %q", got, tc.envVar)
			}
			if !p.ValidateAPIKey(tc.validKey) {
				t.Errorf("ValidateAPIKey(%q) = false", tc.validKey)
			}
			if p.ValidateAPIKey(tc.invalidKey) {
				t.Errorf("ValidateAPIKey(%q) = true", tc.invalidKey)
			}
		})
	}
}

func TestGetProviderUnknown(t *testing.T) {
	if p := GetProvider("mistral"); p != nil {
		t.Errorf("GetProvider(mistral) = %v, want nil", p)
	}
	if got := EnvVarForProvider("mistral"); got != "" {
		t.Errorf("EnvVarForProvider(mistral) = %q, want empty", got)
	}
}

func TestListProviders(t *testing.T) {
	got := ListProviders()
	want := []string{"groq", "openai"}
	if !slices.Equal(got, want) {
		t.Errorf("ListProviders() = %v, want %v", got, want)
	}
}
