package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	t.Run("missing file is fine", func(t *testing.T) {
		if err := LoadEnvFile(configPath); err != nil {
			t.Fatalf("LoadEnvFile: %v", err)
		}
	})

	t.Run("fills unset variables only", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-shell")
		t.Setenv("GROQ_API_KEY", "")
		os.Unsetenv("GROQ_API_KEY")

		env := "OPENAI_API_KEY=sk-file\nGROQ_API_KEY=gsk_file\n"
		if err := os.WriteFile(filepath.Join(dir, EnvFileName), []byte(env), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := LoadEnvFile(configPath); err != nil {
			t.Fatalf("LoadEnvFile: %v", err)
		}
		if got := os.Getenv("OPENAI_API_KEY"); got != "sk-shell" {
			t.Errorf("OPENAI_API_KEY = %q, shell value should win", got)
		}
		if got := os.Getenv("GROQ_API_KEY"); got != "gsk_file" {
			t.Errorf("GROQ_API_KEY = %q, want gsk_file", got)
		}

		cfg := DefaultConfig()
		if got := cfg.ResolveAPIKey("groq"); got != "gsk_file" {
			t.Errorf("ResolveAPIKey(groq) = %q", got)
		}
	})
}
