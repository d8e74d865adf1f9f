package config

import (
	"os"

	"github.com/leonardotrapani/tsukkomi/internal/facilitation"
	"github.com/leonardotrapani/tsukkomi/internal/llm"
	"github.com/leonardotrapani/tsukkomi/internal/provider"
	"github.com/leonardotrapani/tsukkomi/internal/recording"
	"github.com/leonardotrapani/tsukkomi/internal/session"
	"github.com/leonardotrapani/tsukkomi/internal/transcriber"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Recording.SampleRate,
		Channels:          c.Recording.Channels,
		Format:            c.Recording.Format,
		FrameSize:         c.Recording.FrameSize,
		Device:            c.Recording.Device,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
	}
}

func (c *Config) ToRealtimeConfig() transcriber.Config {
	cfg := transcriber.DefaultConfig()
	cfg.Endpoint = c.Realtime.Endpoint
	cfg.APIKey = c.ResolveAPIKey(provider.ProviderOpenAI)
	cfg.Model = c.Realtime.Model
	cfg.TranscriptionModel = c.Realtime.TranscriptionModel
	cfg.Language = c.resolveEffectiveLanguage()
	cfg.InputSampleRate = c.Recording.SampleRate
	cfg.HandshakeTimeout = c.Realtime.HandshakeTimeout
	cfg.SendQueueSize = c.Realtime.SendQueueSize
	return cfg
}

// resolveEffectiveLanguage returns the effective language for transcription.
// realtime.language overrides general.language if set.
func (c *Config) resolveEffectiveLanguage() string {
	if c.Realtime.Language != "" {
		return c.Realtime.Language
	}
	return c.General.Language
}

func (c *Config) ToLLMConfig() llm.Config {
	return llm.Config{
		Provider: c.Facilitation.Provider,
		APIKey:   c.ResolveAPIKey(c.Facilitation.Provider),
		Model:    c.Facilitation.Model,
	}
}

func (c *Config) ToFacilitationConfig() facilitation.Config {
	mode, err := facilitation.ParseMode(c.Facilitation.Mode)
	if err != nil {
		mode = facilitation.ModeAssertive
	}
	return facilitation.Config{
		Mode:                    mode,
		InterjectionTemperature: c.Facilitation.InterjectionTemperature,
		SummaryTemperature:      c.Facilitation.SummaryTemperature,
	}
}

func (c *Config) ToSessionOptions() session.Options {
	return session.Options{
		Interval:          c.Facilitation.Interval,
		GenerationTimeout: c.Facilitation.GenerationTimeout,
		PublishTimeout:    c.Session.PublishTimeout,
	}
}

// NotifierKind is the notify.New kind, "none" when notifications are off.
func (c *Config) NotifierKind() string {
	if !c.Notifications.Enabled {
		return "none"
	}
	return c.Notifications.Type
}

// ResolveAPIKey returns the API key for a provider: the providers table
// first, then the provider's environment variable.
func (c *Config) ResolveAPIKey(providerName string) string {
	if pc, ok := c.Providers[providerName]; ok && pc.APIKey != "" {
		return pc.APIKey
	}
	if envVar := provider.EnvVarForProvider(providerName); envVar != "" {
		return os.Getenv(envVar)
	}
	return ""
}
