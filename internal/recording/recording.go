package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// AudioFrame is one fixed-size block of interleaved s16le PCM.
type AudioFrame struct {
	Data      []byte
	Timestamp time.Time
}

type Config struct {
	SampleRate        int
	Channels          int
	Format            string
	FrameSize         int // samples per channel in one frame
	Device            string
	ChannelBufferSize int
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        24000,
		Channels:          1,
		Format:            "s16",
		FrameSize:         1024,
		Device:            "",
		ChannelBufferSize: 30,
	}
}

// FrameBytes is the byte length of one frame.
func (c Config) FrameBytes() int {
	return c.FrameSize * c.Channels * 2
}

// Recorder captures microphone audio through pw-record and hands it out
// one frame at a time. Frames that the reader does not pick up in time are
// dropped and reported through DeviceOverrunError.
type Recorder struct {
	config Config
	logger *log.Logger

	frames  chan AudioFrame
	dropped atomic.Int64
	closing atomic.Bool

	mu      sync.Mutex // guards cmd, src, cancel and exitErr
	cmd     *exec.Cmd
	src     io.Closer
	cancel  context.CancelFunc
	exitErr error

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newRecorder(cfg Config, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default().WithPrefix("recording")
	}
	return &Recorder{
		config: cfg,
		logger: logger,
		frames: make(chan AudioFrame, cfg.ChannelBufferSize),
	}
}

// Open starts capturing from the configured PipeWire source.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (*Recorder, error) {
	r := newRecorder(cfg, logger)
	if err := r.validateConfig(); err != nil {
		return nil, &DeviceError{Op: "open", Err: err}
	}
	if err := CheckPipeWireAvailable(ctx); err != nil {
		return nil, &DeviceError{Op: "open", Err: err}
	}

	capCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(capCtx, "pw-record", r.buildPwRecordArgs()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, &DeviceError{Op: "open", Err: fmt.Errorf("create stdout pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, &DeviceError{Op: "open", Err: fmt.Errorf("create stderr pipe: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, &DeviceError{Op: "open", Err: fmt.Errorf("start pw-record: %w", err)}
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			r.logger.Debug("pw-record", "stderr", scanner.Text())
		}
	}()

	r.mu.Lock()
	r.cmd = cmd
	r.mu.Unlock()
	r.start(cancel, stdout)

	r.logger.Info("capture started", "rate", cfg.SampleRate, "channels", cfg.Channels, "frame", cfg.FrameSize, "device", cfg.Device)
	return r, nil
}

func (r *Recorder) start(cancel context.CancelFunc, src io.ReadCloser) {
	r.mu.Lock()
	r.src = src
	r.cancel = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go r.captureLoop(src)
}

func (r *Recorder) captureLoop(src io.Reader) {
	defer r.wg.Done()
	defer close(r.frames)

	frameBytes := r.config.FrameBytes()
	lastDropLog := time.Now()
	var droppedSinceLog int

	for {
		buf := make([]byte, frameBytes)
		if _, err := io.ReadFull(src, buf); err != nil {
			r.finish(err)
			return
		}

		select {
		case r.frames <- AudioFrame{Data: buf, Timestamp: time.Now()}:
		default:
			r.dropped.Add(1)
			droppedSinceLog++
			if time.Since(lastDropLog) > time.Second {
				r.logger.Warn("dropped frames due to backpressure", "count", droppedSinceLog)
				lastDropLog = time.Now()
				droppedSinceLog = 0
			}
		}
	}
}

// finish reaps pw-record and records why the stream ended.
func (r *Recorder) finish(readErr error) {
	r.mu.Lock()
	cmd := r.cmd
	r.cmd = nil
	r.mu.Unlock()

	var waitErr error
	if cmd != nil {
		waitErr = cmd.Wait()
	}
	if r.closing.Load() {
		return
	}

	var exitErr error
	switch {
	case waitErr != nil:
		exitErr = fmt.Errorf("pw-record exited: %w", waitErr)
	case errors.Is(readErr, io.EOF), errors.Is(readErr, io.ErrUnexpectedEOF):
		exitErr = errors.New("capture stream ended")
	default:
		exitErr = fmt.Errorf("read audio: %w", readErr)
	}

	r.mu.Lock()
	r.exitErr = exitErr
	r.mu.Unlock()
	r.logger.Error("capture stopped", "err", exitErr)
}

// ReadFrame blocks until the next frame is available. It returns a
// *DeviceOverrunError once after frames were dropped; the caller may keep
// reading. Once the device is gone it returns a *DeviceError.
func (r *Recorder) ReadFrame(ctx context.Context) (AudioFrame, error) {
	if n := r.dropped.Swap(0); n > 0 {
		return AudioFrame{}, &DeviceOverrunError{Dropped: n}
	}

	select {
	case frame, ok := <-r.frames:
		if !ok {
			return AudioFrame{}, r.endErr()
		}
		return frame, nil
	case <-ctx.Done():
		return AudioFrame{}, ctx.Err()
	}
}

func (r *Recorder) endErr() error {
	if r.closing.Load() {
		return &DeviceError{Op: "read", Err: ErrClosed}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exitErr != nil {
		return &DeviceError{Op: "read", Err: r.exitErr}
	}
	return &DeviceError{Op: "read", Err: io.EOF}
}

// Close stops pw-record and waits for the capture goroutine. Safe to call
// more than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.closing.Store(true)

		r.mu.Lock()
		cancel, src := r.cancel, r.src
		r.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if src != nil {
			_ = src.Close()
		}
		r.wg.Wait()
		r.logger.Info("capture closed")
	})
	return nil
}

func (r *Recorder) buildPwRecordArgs() []string {
	args := []string{
		"--format", r.config.Format,
		"--rate", strconv.Itoa(r.config.SampleRate),
		"--channels", strconv.Itoa(r.config.Channels),
		"-", // stdout
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	return args
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := exec.CommandContext(checkCtx, "pw-cli", "info").Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}

func (r *Recorder) validateConfig() error {
	if r.config.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", r.config.SampleRate)
	}
	if r.config.Channels <= 0 {
		return fmt.Errorf("invalid Channels: %d", r.config.Channels)
	}
	if r.config.FrameSize <= 0 {
		return fmt.Errorf("invalid FrameSize: %d", r.config.FrameSize)
	}
	if r.config.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", r.config.ChannelBufferSize)
	}
	if r.config.Format != "s16" {
		return fmt.Errorf("invalid Format: %q (only s16 is supported)", r.config.Format)
	}
	return nil
}
