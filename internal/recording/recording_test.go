package recording

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func testRecorder(t *testing.T, cfg Config) (*Recorder, *io.PipeWriter) {
	t.Helper()
	pr, pw := io.Pipe()
	r := newRecorder(cfg, log.New(io.Discard))
	_, cancel := context.WithCancel(context.Background())
	r.start(cancel, pr)
	t.Cleanup(func() { r.Close() })
	return r, pw
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.FrameSize = 4
	cfg.ChannelBufferSize = 2
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.SampleRate != 24000 {
		t.Errorf("SampleRate = %d, want 24000", cfg.SampleRate)
	}
	if cfg.Channels != 1 {
		t.Errorf("Channels = %d, want 1", cfg.Channels)
	}
	if cfg.FrameSize != 1024 {
		t.Errorf("FrameSize = %d, want 1024", cfg.FrameSize)
	}
	if got := cfg.FrameBytes(); got != 2048 {
		t.Errorf("FrameBytes() = %d, want 2048", got)
	}
}

func TestBuildPwRecordArgs(t *testing.T) {
	tests := []struct {
		name   string
		device string
		want   []string
	}{
		{
			name: "default source",
			want: []string{"--format", "s16", "--rate", "24000", "--channels", "1", "-"},
		},
		{
			name:   "explicit target",
			device: "alsa_input.usb",
			want:   []string{"--format", "s16", "--rate", "24000", "--channels", "1", "-", "--target", "alsa_input.usb"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Device = tc.device
			r := newRecorder(cfg, log.New(io.Discard))
			if got := r.buildPwRecordArgs(); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("args = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"zero channels", func(c *Config) { c.Channels = 0 }, true},
		{"zero frame", func(c *Config) { c.FrameSize = 0 }, true},
		{"zero buffer", func(c *Config) { c.ChannelBufferSize = 0 }, true},
		{"float format", func(c *Config) { c.Format = "f32" }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := newRecorder(cfg, log.New(io.Discard)).validateConfig()
			if (err != nil) != tc.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestOpenInvalidConfigIsDeviceError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Channels = 0
	_, err := Open(context.Background(), cfg, log.New(io.Discard))
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("expected *DeviceError, got %v", err)
	}
	if devErr.Op != "open" {
		t.Errorf("Op = %q, want open", devErr.Op)
	}
}

func TestReadFrameReturnsFixedSizeFrames(t *testing.T) {
	r, pw := testRecorder(t, smallConfig())

	go func() {
		// 1.5 frames in two writes; the second frame needs the next write.
		pw.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
		pw.Write([]byte{13, 14, 15, 16})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, err := r.ReadFrame(ctx)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !reflect.DeepEqual(first.Data, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("first frame = %v", first.Data)
	}
	second, err := r.ReadFrame(ctx)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !reflect.DeepEqual(second.Data, []byte{9, 10, 11, 12, 13, 14, 15, 16}) {
		t.Errorf("second frame = %v", second.Data)
	}
	if second.Timestamp.IsZero() {
		t.Error("frame timestamp not set")
	}
}

func TestReadFrameReportsOverrunOnce(t *testing.T) {
	r, pw := testRecorder(t, smallConfig())

	// Buffer holds 2 frames; write 5 so 3 are dropped.
	if _, err := pw.Write(make([]byte, 8*5)); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for r.dropped.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ctx := context.Background()
	_, err := r.ReadFrame(ctx)
	var overrun *DeviceOverrunError
	if !errors.As(err, &overrun) {
		t.Fatalf("expected overrun, got %v", err)
	}
	if overrun.Dropped != 3 {
		t.Errorf("Dropped = %d, want 3", overrun.Dropped)
	}
	if !IsOverrun(err) {
		t.Error("IsOverrun() = false")
	}

	for i := 0; i < 2; i++ {
		if _, err := r.ReadFrame(ctx); err != nil {
			t.Fatalf("ReadFrame %d after overrun: %v", i, err)
		}
	}
}

func TestReadFrameDeviceLost(t *testing.T) {
	r, pw := testRecorder(t, smallConfig())
	pw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := r.ReadFrame(ctx)

	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("expected *DeviceError, got %v", err)
	}
	if errors.Is(err, ErrClosed) {
		t.Error("device loss must not look like a local close")
	}
}

func TestReadFrameHonoursContext(t *testing.T) {
	r, _ := testRecorder(t, smallConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := r.ReadFrame(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	r, _ := testRecorder(t, smallConfig())

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	_, err := r.ReadFrame(context.Background())
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}
