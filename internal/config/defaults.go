package config

import (
	"time"

	"github.com/leonardotrapani/tsukkomi/internal/language"
	"github.com/leonardotrapani/tsukkomi/internal/provider"
	"github.com/leonardotrapani/tsukkomi/internal/transcriber"
)

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			Language: language.Default,
		},
		Recording: RecordingConfig{
			SampleRate:        transcriber.StreamSampleRate,
			Channels:          1,
			Format:            "s16",
			FrameSize:         1024,
			Device:            "",
			ChannelBufferSize: 30,
		},
		Realtime: RealtimeConfig{
			Endpoint:           transcriber.DefaultEndpoint,
			Model:              transcriber.DefaultModel,
			TranscriptionModel: transcriber.DefaultTranscriptionModel,
			HandshakeTimeout:   10 * time.Second,
			SendQueueSize:      64,
		},
		Facilitation: FacilitationConfig{
			Mode:                    "assertive",
			Interval:                60 * time.Second,
			Provider:                provider.ProviderOpenAI,
			Model:                   "",
			InterjectionTemperature: 0.7,
			SummaryTemperature:      0.5,
			GenerationTimeout:       30 * time.Second,
		},
		Session: SessionConfig{
			ResultBuffer:   256,
			PublishTimeout: time.Second,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		Providers: make(map[string]ProviderConfig),
	}
}

const defaultConfigContent = `# Tsukkomi Configuration
# This file is automatically generated with defaults.
# Edit values as needed - a running daemon picks them up on the next start.

[general]
  language = "ja"              # Meeting language ("" for auto-detect)

# Audio Recording Configuration
[recording]
  sample_rate = 24000          # 24000 is sent as is, 16000 is resampled
  channels = 1                 # Number of audio channels (1 = mono)
  format = "s16"               # Audio format (only s16 is supported)
  frame_size = 1024            # Samples per frame sent to the realtime API
  device = ""                  # PipeWire audio device (empty = use default microphone)
  channel_buffer_size = 30     # Frames buffered before new ones are dropped

# Realtime Transcription (OpenAI)
[realtime]
  endpoint = "wss://api.openai.com/v1/realtime"
  model = "gpt-4o-realtime-preview"
  transcription_model = "whisper-1"
  language = ""                # Overrides general.language when set
  handshake_timeout = "10s"
  send_queue_size = 64         # Frames queued for the socket before frames are dropped

# Interjections and Summaries
[facilitation]
  mode = "assertive"           # "assertive" (OTOKO☆MAEくん) or "gentle" (OTO♡MEちゃん)
  interval = "1m"              # Minimum time between interjection attempts (>= 10s)
  provider = "openai"          # "openai" or "groq"
  model = ""                   # Empty = provider default
  interjection_temperature = 0.7
  summary_temperature = 0.5
  generation_timeout = "30s"

[session]
  result_buffer = 256          # Results kept for "tsukkomi poll" / "tsukkomi watch"
  publish_timeout = "1s"

# API keys (or set OPENAI_API_KEY / GROQ_API_KEY)
[providers.openai]
  api_key = ""

[notifications]
  enabled = true
  type = "desktop"             # "desktop", "log", "none"
`
