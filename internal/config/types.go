package config

import "time"

type Config struct {
	General       GeneralConfig             `toml:"general"`
	Recording     RecordingConfig           `toml:"recording"`
	Realtime      RealtimeConfig            `toml:"realtime"`
	Facilitation  FacilitationConfig        `toml:"facilitation"`
	Session       SessionConfig             `toml:"session"`
	Notifications NotificationsConfig       `toml:"notifications"`
	Providers     map[string]ProviderConfig `toml:"providers"`
}

// GeneralConfig holds settings shared by every component.
type GeneralConfig struct {
	Language string `toml:"language"`
}

// ProviderConfig holds API key for a provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}

type RecordingConfig struct {
	SampleRate        int    `toml:"sample_rate"`
	Channels          int    `toml:"channels"`
	Format            string `toml:"format"`
	FrameSize         int    `toml:"frame_size"`
	Device            string `toml:"device"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
}

// RealtimeConfig configures the streaming transcription connection. It
// always talks to OpenAI.
type RealtimeConfig struct {
	Endpoint           string        `toml:"endpoint"`
	Model              string        `toml:"model"`
	TranscriptionModel string        `toml:"transcription_model"`
	Language           string        `toml:"language"` // overrides general.language
	HandshakeTimeout   time.Duration `toml:"handshake_timeout"`
	SendQueueSize      int           `toml:"send_queue_size"`
}

// FacilitationConfig configures interjections and summaries.
type FacilitationConfig struct {
	Mode                    string        `toml:"mode"`
	Interval                time.Duration `toml:"interval"`
	Provider                string        `toml:"provider"`
	Model                   string        `toml:"model"`
	InterjectionTemperature float32       `toml:"interjection_temperature"`
	SummaryTemperature      float32       `toml:"summary_temperature"`
	GenerationTimeout       time.Duration `toml:"generation_timeout"`
}

type SessionConfig struct {
	ResultBuffer   int           `toml:"result_buffer"`
	PublishTimeout time.Duration `toml:"publish_timeout"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}
