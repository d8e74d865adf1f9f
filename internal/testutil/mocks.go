package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/tsukkomi/internal/llm"
	"github.com/leonardotrapani/tsukkomi/internal/recording"
	"github.com/leonardotrapani/tsukkomi/internal/transcriber"
)

// MockSource stands in for a microphone. Tests push frames through Frames.
type MockSource struct {
	Frames chan recording.AudioFrame

	closes    atomic.Int32
	closed    chan struct{}
	closeOnce sync.Once
}

func NewMockSource() *MockSource {
	return &MockSource{
		Frames: make(chan recording.AudioFrame, 16),
		closed: make(chan struct{}),
	}
}

func (m *MockSource) ReadFrame(ctx context.Context) (recording.AudioFrame, error) {
	select {
	case f := <-m.Frames:
		return f, nil
	case <-m.closed:
		return recording.AudioFrame{}, &recording.DeviceError{Op: "read", Err: recording.ErrClosed}
	case <-ctx.Done():
		return recording.AudioFrame{}, ctx.Err()
	}
}

func (m *MockSource) Close() error {
	m.closes.Add(1)
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

// Closes returns how many times Close was called.
func (m *MockSource) Closes() int { return int(m.closes.Load()) }

// MockLink stands in for a realtime connection. Tests feed inbound events
// with Emit and Fail.
type MockLink struct {
	SendErr error

	events chan transcriber.Event
	sent   atomic.Int32
	disc   atomic.Int32
	seq    atomic.Uint64

	mu     sync.Mutex
	closed bool
}

func NewMockLink() *MockLink {
	return &MockLink{events: make(chan transcriber.Event, 64)}
}

func (m *MockLink) SendFrame(recording.AudioFrame) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return &transcriber.ConnectionClosedError{}
	}
	if m.SendErr != nil {
		return m.SendErr
	}
	m.sent.Add(1)
	return nil
}

func (m *MockLink) Events() <-chan transcriber.Event { return m.events }

// Emit delivers one completed transcript.
func (m *MockLink) Emit(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.events <- transcriber.Event{Transcript: transcriber.TranscriptEvent{
		Seq:        m.seq.Add(1),
		Text:       text,
		ReceivedAt: time.Now(),
	}}
}

// Fail delivers a terminal error and closes the stream, as a dropped
// connection would.
func (m *MockLink) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.events <- transcriber.Event{Err: err}
	m.closed = true
	close(m.events)
}

func (m *MockLink) Disconnect() error {
	m.disc.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
	return nil
}

// Sent returns the number of frames accepted by SendFrame.
func (m *MockLink) Sent() int { return int(m.sent.Load()) }

// Disconnects returns how many times Disconnect was called.
func (m *MockLink) Disconnects() int { return int(m.disc.Load()) }

// MockGenerator implements llm.Adapter. Responses are returned in order and
// the last one repeats.
type MockGenerator struct {
	Responses []string
	Err       error
	Block     chan struct{} // when set, Complete waits for it to close

	mu       sync.Mutex
	requests []llm.Request
}

func NewMockGenerator(responses ...string) *MockGenerator {
	return &MockGenerator{Responses: responses}
}

func (m *MockGenerator) Complete(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	n := len(m.requests)
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	if n >= len(m.Responses) {
		n = len(m.Responses) - 1
	}
	return m.Responses[n], nil
}

// Calls returns how many times Complete was called.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *MockGenerator) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}
