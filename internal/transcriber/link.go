package transcriber

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/leonardotrapani/tsukkomi/internal/provider"
	"github.com/leonardotrapani/tsukkomi/internal/recording"
)

const (
	DefaultEndpoint           = provider.RealtimeEndpoint
	DefaultModel              = "gpt-4o-realtime-preview"
	DefaultTranscriptionModel = "whisper-1"

	// StreamSampleRate is the PCM16 rate the realtime API expects.
	StreamSampleRate = 24000

	writeTimeout = 5 * time.Second
)

type Config struct {
	Endpoint           string
	APIKey             string
	Model              string
	TranscriptionModel string
	Language           string
	InputSampleRate    int // 16000 input is resampled, anything else is sent as is
	HandshakeTimeout   time.Duration
	SendQueueSize      int
	EventBufferSize    int
}

func DefaultConfig() Config {
	return Config{
		Endpoint:           DefaultEndpoint,
		Model:              DefaultModel,
		TranscriptionModel: DefaultTranscriptionModel,
		Language:           "ja",
		InputSampleRate:    StreamSampleRate,
		HandshakeTimeout:   10 * time.Second,
		SendQueueSize:      64,
		EventBufferSize:    100,
	}
}

// TranscriptEvent is one completed utterance. Seq starts at 1 and grows by
// one per event on a connection.
type TranscriptEvent struct {
	Seq        uint64    `json:"seq"`
	ItemID     string    `json:"item_id,omitempty"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// Event is what Events yields: a transcript, or a terminal fatal error
// after which the channel is closed.
type Event struct {
	Transcript TranscriptEvent
	Err        error
}

// Conn is one realtime transcription connection. SendFrame may be called
// from one goroutine while another drains Events.
type Conn struct {
	cfg    Config
	logger *log.Logger
	ws     *websocket.Conn

	out    chan []byte
	events chan Event
	done   chan struct{} // closed when the connection stops accepting audio
	quit   chan struct{} // closed by Disconnect

	closing   atomic.Bool
	stopOnce  sync.Once
	closeOnce sync.Once
	causeMu   sync.Mutex
	cause     error

	seq uint64 // read loop only
	wg  sync.WaitGroup
}

func newConn(cfg Config, ws *websocket.Conn, logger *log.Logger) *Conn {
	if logger == nil {
		logger = log.Default().WithPrefix("realtime")
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 64
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = 100
	}
	return &Conn{
		cfg:    cfg,
		logger: logger,
		ws:     ws,
		out:    make(chan []byte, cfg.SendQueueSize),
		events: make(chan Event, cfg.EventBufferSize),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
	}
}

// Connect dials the realtime endpoint and sends the session configuration
// once. Any failure here is returned as *ConnectError.
func Connect(ctx context.Context, cfg Config, logger *log.Logger) (*Conn, error) {
	if logger == nil {
		logger = log.Default().WithPrefix("realtime")
	}
	wsURL, err := buildURL(cfg)
	if err != nil {
		return nil, &ConnectError{Err: fmt.Errorf("build websocket url: %w", err)}
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+cfg.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	logger.Info("connecting", "url", wsURL)
	ws, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, &ConnectError{Status: status, Err: err}
	}

	// The loops are not running yet, so this write has the socket to itself.
	ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := ws.WriteJSON(newSessionUpdate(cfg)); err != nil {
		ws.Close()
		return nil, &ConnectError{Err: fmt.Errorf("configure session: %w", err)}
	}

	c := newConn(cfg, ws, logger)
	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()

	logger.Info("connected", "model", cfg.Model, "transcription_model", cfg.TranscriptionModel, "language", cfg.Language)
	return c, nil
}

func buildURL(cfg Config) (string, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("endpoint scheme must be ws or wss, got %q", u.Scheme)
	}
	q := u.Query()
	q.Set("model", cfg.Model)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SendFrame queues one audio frame without blocking. A full queue yields
// *TransientSendError; a dead connection yields *ConnectionClosedError.
func (c *Conn) SendFrame(frame recording.AudioFrame) error {
	select {
	case <-c.done:
		return c.closedErr()
	default:
	}

	pcm := frame.Data
	if c.cfg.InputSampleRate == 16000 {
		pcm = resample16to24(pcm)
	}
	msg, err := json.Marshal(inputAudioAppend{
		Type:  eventInputAudioAppend,
		Audio: base64.StdEncoding.EncodeToString(pcm),
	})
	if err != nil {
		return &TransientSendError{Err: err}
	}

	select {
	case c.out <- msg:
		return nil
	case <-c.done:
		return c.closedErr()
	default:
		return &TransientSendError{Err: ErrQueueFull}
	}
}

// Events yields transcripts in arrival order. The channel is closed when the
// connection ends; an unexpected end is reported by a final Event with Err set.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// writeLoop is the only goroutine that writes data frames to the socket.
func (c *Conn) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				if c.closing.Load() {
					return
				}
				c.logger.Error("write failed", "err", err)
				c.stop(&ConnectionClosedError{Err: err})
				c.ws.Close()
				return
			}
		}
	}
}

func (c *Conn) readLoop() {
	defer c.wg.Done()
	defer close(c.events)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.closing.Load() {
				return
			}
			c.stop(&ConnectionClosedError{Err: err})
			c.logger.Error("read failed", "err", err)
			c.emit(Event{Err: c.closedErr()})
			return
		}

		if fatal := c.dispatch(data); fatal != nil {
			c.stop(fatal)
			c.emit(Event{Err: fatal})
			c.ws.Close()
			return
		}
	}
}

// dispatch handles one inbound message and returns a non-nil error only when
// the message ends the connection.
func (c *Conn) dispatch(data []byte) error {
	var ev serverEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		c.logger.Warn("skipping malformed message", "err", err, "bytes", len(data))
		return nil
	}

	switch ev.Type {
	case eventTranscriptCompleted:
		text := strings.TrimSpace(ev.Transcript)
		if text == "" {
			c.logger.Debug("empty transcript", "item_id", ev.ItemID)
			return nil
		}
		c.seq++
		c.logger.Debug("transcript", "seq", c.seq, "item_id", ev.ItemID, "text", text)
		c.emit(Event{Transcript: TranscriptEvent{
			Seq:        c.seq,
			ItemID:     ev.ItemID,
			Text:       text,
			ReceivedAt: time.Now(),
		}})

	case eventError:
		if ev.Error == nil {
			c.logger.Warn("error event without payload")
			return nil
		}
		serverErr := &ServerError{Type: ev.Error.Type, Code: ev.Error.Code, Message: ev.Error.Message}
		if serverErr.Fatal() {
			c.logger.Error("server error", "err", serverErr)
			return serverErr
		}
		c.logger.Warn("server error", "err", serverErr)

	case eventTranscriptFailed:
		if ev.Error != nil {
			c.logger.Warn("transcription failed", "item_id", ev.ItemID, "err", ev.Error.Message)
		}

	case eventSessionCreated:
		if ev.Session != nil {
			c.logger.Info("session created", "id", ev.Session.ID, "model", ev.Session.Model)
		}

	case eventSessionUpdated:
		c.logger.Info("session updated")

	case eventSpeechStarted, eventSpeechStopped:
		c.logger.Debug(ev.Type, "item_id", ev.ItemID)

	default:
		c.logger.Debug("ignored event", "type", ev.Type)
	}
	return nil
}

func (c *Conn) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.quit:
	}
}

func (c *Conn) stop(cause error) {
	c.stopOnce.Do(func() {
		c.causeMu.Lock()
		c.cause = cause
		c.causeMu.Unlock()
		close(c.done)
	})
}

func (c *Conn) stopCause() error {
	c.causeMu.Lock()
	defer c.causeMu.Unlock()
	return c.cause
}

func (c *Conn) closedErr() error {
	cause := c.stopCause()
	var closed *ConnectionClosedError
	if errors.As(cause, &closed) {
		return cause
	}
	return &ConnectionClosedError{Err: cause}
}

// Disconnect closes the socket and waits for both loops. It is safe to call
// more than once and after the connection already broke.
func (c *Conn) Disconnect() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.stop(nil)
		close(c.quit)

		if c.ws != nil {
			// WriteControl may run concurrently with the write loop.
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			c.ws.Close()
		}
		c.wg.Wait()
		c.logger.Info("disconnected")
	})
	return nil
}
