package transcriber

// Realtime API messages sent by the client.
type sessionUpdate struct {
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type sessionConfig struct {
	Modalities              []string             `json:"modalities,omitempty"`
	InputAudioFormat        string               `json:"input_audio_format,omitempty"`
	InputAudioTranscription *inputTranscription  `json:"input_audio_transcription,omitempty"`
	TurnDetection           *turnDetectionConfig `json:"turn_detection,omitempty"`
}

type inputTranscription struct {
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
}

type turnDetectionConfig struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
	CreateResponse    bool    `json:"create_response"`
}

type inputAudioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// Realtime API messages sent by the server. Only the fields the link acts
// on are decoded.
type serverEvent struct {
	Type       string       `json:"type"`
	EventID    string       `json:"event_id,omitempty"`
	Session    *sessionInfo `json:"session,omitempty"`
	Error      *serverErr   `json:"error,omitempty"`
	ItemID     string       `json:"item_id,omitempty"`
	Transcript string       `json:"transcript,omitempty"`
}

type sessionInfo struct {
	ID    string `json:"id"`
	Model string `json:"model"`
}

type serverErr struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

const (
	eventSessionUpdate       = "session.update"
	eventInputAudioAppend    = "input_audio_buffer.append"
	eventSessionCreated      = "session.created"
	eventSessionUpdated      = "session.updated"
	eventTranscriptCompleted = "conversation.item.input_audio_transcription.completed"
	eventTranscriptFailed    = "conversation.item.input_audio_transcription.failed"
	eventSpeechStarted       = "input_audio_buffer.speech_started"
	eventSpeechStopped       = "input_audio_buffer.speech_stopped"
	eventError               = "error"
)

// Server VAD policy. Fixed for every session.
const (
	vadThreshold         = 0.5
	vadPrefixPaddingMs   = 300
	vadSilenceDurationMs = 500
)

func newSessionUpdate(cfg Config) sessionUpdate {
	return sessionUpdate{
		Type: eventSessionUpdate,
		Session: sessionConfig{
			Modalities:       []string{"text"},
			InputAudioFormat: "pcm16",
			InputAudioTranscription: &inputTranscription{
				Model:    cfg.TranscriptionModel,
				Language: cfg.Language,
			},
			TurnDetection: &turnDetectionConfig{
				Type:              "server_vad",
				Threshold:         vadThreshold,
				PrefixPaddingMs:   vadPrefixPaddingMs,
				SilenceDurationMs: vadSilenceDurationMs,
				CreateResponse:    false,
			},
		},
	}
}
