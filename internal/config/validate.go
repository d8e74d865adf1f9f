package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/leonardotrapani/tsukkomi/internal/facilitation"
	"github.com/leonardotrapani/tsukkomi/internal/language"
	"github.com/leonardotrapani/tsukkomi/internal/provider"
	"github.com/leonardotrapani/tsukkomi/internal/session"
)

func (c *Config) Validate() error {
	if !language.IsValidCode(c.General.Language) {
		return fmt.Errorf("invalid general.language: %s (use empty string for auto-detect or ISO-639-1 codes like 'ja', 'en')", c.General.Language)
	}

	if c.Recording.SampleRate != 16000 && c.Recording.SampleRate != 24000 {
		return fmt.Errorf("invalid recording.sample_rate: %d (must be 16000 or 24000)", c.Recording.SampleRate)
	}
	if c.Recording.Channels != 1 {
		return fmt.Errorf("invalid recording.channels: %d (the realtime API takes mono audio)", c.Recording.Channels)
	}
	if c.Recording.Format != "s16" {
		return fmt.Errorf("invalid recording.format: %q (only s16 is supported)", c.Recording.Format)
	}
	if c.Recording.FrameSize <= 0 {
		return fmt.Errorf("invalid recording.frame_size: %d", c.Recording.FrameSize)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}

	u, err := url.Parse(c.Realtime.Endpoint)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("invalid realtime.endpoint: %q (must be a ws:// or wss:// URL)", c.Realtime.Endpoint)
	}
	if c.Realtime.Model == "" {
		return fmt.Errorf("invalid realtime.model: empty")
	}
	if c.Realtime.TranscriptionModel == "" {
		return fmt.Errorf("invalid realtime.transcription_model: empty")
	}
	if !language.IsValidCode(c.Realtime.Language) {
		return fmt.Errorf("invalid realtime.language: %s", c.Realtime.Language)
	}
	if c.Realtime.HandshakeTimeout <= 0 {
		return fmt.Errorf("invalid realtime.handshake_timeout: %v", c.Realtime.HandshakeTimeout)
	}
	if c.Realtime.SendQueueSize <= 0 {
		return fmt.Errorf("invalid realtime.send_queue_size: %d", c.Realtime.SendQueueSize)
	}
	if c.ResolveAPIKey(provider.ProviderOpenAI) == "" {
		return fmt.Errorf("OpenAI API key required for realtime transcription: not found in config (providers.openai.api_key) or environment variable (%s)", provider.EnvOpenAIKey)
	}

	if _, err := facilitation.ParseMode(c.Facilitation.Mode); err != nil {
		return fmt.Errorf("invalid facilitation.mode: %w", err)
	}
	if c.Facilitation.Interval < session.MinInterval {
		return fmt.Errorf("invalid facilitation.interval: %v (must be at least %v)", c.Facilitation.Interval, session.MinInterval)
	}
	p := provider.GetProvider(c.Facilitation.Provider)
	if p == nil {
		return fmt.Errorf("invalid facilitation.provider: %s (must be openai or groq)", c.Facilitation.Provider)
	}
	key := c.ResolveAPIKey(c.Facilitation.Provider)
	if key == "" {
		return fmt.Errorf("%s API key required for facilitation: not found in config (providers.%s.api_key) or environment variable (%s)",
			p.Name(), p.Name(), provider.EnvVarForProvider(p.Name()))
	}
	if !p.ValidateAPIKey(key) {
		logger.Warn("API key does not look like a "+p.Name()+" key", "provider", p.Name())
	}
	if err := validateTemperature("facilitation.interjection_temperature", c.Facilitation.InterjectionTemperature); err != nil {
		return err
	}
	if err := validateTemperature("facilitation.summary_temperature", c.Facilitation.SummaryTemperature); err != nil {
		return err
	}
	if c.Facilitation.GenerationTimeout <= 0 {
		return fmt.Errorf("invalid facilitation.generation_timeout: %v", c.Facilitation.GenerationTimeout)
	}

	if c.Session.ResultBuffer <= 0 {
		return fmt.Errorf("invalid session.result_buffer: %d", c.Session.ResultBuffer)
	}
	if c.Session.PublishTimeout <= 0 || c.Session.PublishTimeout > time.Minute {
		return fmt.Errorf("invalid session.publish_timeout: %v", c.Session.PublishTimeout)
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}

func validateTemperature(field string, t float32) error {
	if t < 0 || t > 2 {
		return fmt.Errorf("invalid %s: %v (must be between 0 and 2)", field, t)
	}
	return nil
}
