package config

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/tsukkomi/internal/testutil"
)

const managerConfig = `
[facilitation]
mode = "assertive"

[providers.openai]
api_key = "sk-test"
`

func TestNewManagerAt(t *testing.T) {
	path := testutil.CreateTempConfigFile(t, managerConfig)
	m, err := NewManagerAt(path)
	if err != nil {
		t.Fatalf("NewManagerAt() error = %v", err)
	}
	if m.Path() != path {
		t.Errorf("Path() = %s", m.Path())
	}

	c := m.GetConfig()
	c.Facilitation.Mode = "gentle"
	if m.GetConfig().Facilitation.Mode != "assertive" {
		t.Error("GetConfig() returned shared state")
	}
}

func TestNewManagerAtRejectsInvalidConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := testutil.CreateTempConfigFile(t, "[facilitation]\nmode = \"assertive\"\n")
	if _, err := NewManagerAt(path); err == nil || !strings.Contains(err.Error(), "OpenAI API key") {
		t.Errorf("NewManagerAt() error = %v", err)
	}
}

func TestManagerReloadsOnWrite(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := testutil.CreateTempConfigFile(t, managerConfig)
	m, err := NewManagerAt(path)
	if err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 16)
	m.OnReload(func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching() error = %v", err)
	}
	defer m.Stop()

	// invalid edits are ignored
	if err := os.WriteFile(path, []byte("[facilitation]\nmode = \"sarcastic\"\n[providers.openai]\napi_key = \"sk-test\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if m.GetConfig().Facilitation.Mode != "assertive" {
		t.Fatal("invalid config replaced the current one")
	}

	if err := os.WriteFile(path, []byte(strings.Replace(managerConfig, "assertive", "gentle", 1)), 0600); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(2 * time.Second)
	for done := false; !done; {
		select {
		case c := <-reloaded:
			done = c.Facilitation.Mode == "gentle"
		case <-deadline:
			t.Fatal("no reload with the new mode after write")
		}
	}
	if m.GetConfig().Facilitation.Mode != "gentle" {
		t.Error("GetConfig() not updated")
	}
}
