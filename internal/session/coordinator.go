package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/leonardotrapani/tsukkomi/internal/facilitation"
	"github.com/leonardotrapani/tsukkomi/internal/notify"
	"github.com/leonardotrapani/tsukkomi/internal/recording"
	"github.com/leonardotrapani/tsukkomi/internal/results"
	"github.com/leonardotrapani/tsukkomi/internal/transcriber"
)

const MinInterval = 10 * time.Second

var ErrBusy = errors.New("session is stopping, try again")

type AudioSource interface {
	ReadFrame(ctx context.Context) (recording.AudioFrame, error)
	Close() error
}

type Link interface {
	SendFrame(frame recording.AudioFrame) error
	Events() <-chan transcriber.Event
	Disconnect() error
}

type Policy interface {
	MaybeGenerateInterjection(ctx context.Context, text string, now, last time.Time, interval time.Duration) facilitation.Outcome
	GenerateSummary(ctx context.Context, text string) string
	Mode() facilitation.Mode
	SetMode(m facilitation.Mode)
}

// Deps are the collaborators a Coordinator drives. OpenAudio and Connect
// are called once per session, from the worker goroutine.
type Deps struct {
	OpenAudio func(ctx context.Context) (AudioSource, error)
	Connect   func(ctx context.Context) (Link, error)
	Policy    Policy
	Results   *results.Channel
	Notifier  notify.Notifier
	Now       func() time.Time
}

type Options struct {
	Interval          time.Duration
	GenerationTimeout time.Duration
	PublishTimeout    time.Duration // how long a failure report may wait for room
}

func DefaultOptions() Options {
	return Options{
		Interval:          60 * time.Second,
		GenerationTimeout: 30 * time.Second,
		PublishTimeout:    time.Second,
	}
}

// Snapshot is a point-in-time view of the coordinator for status output.
type Snapshot struct {
	Status           Status            `json:"status"`
	SessionID        string            `json:"session_id,omitempty"`
	StartedAt        time.Time         `json:"started_at"`
	EndedAt          time.Time         `json:"ended_at"`
	LastInterjection time.Time         `json:"last_interjection"`
	Transcripts      int               `json:"transcripts"`
	Mode             facilitation.Mode `json:"mode"`
	Persona          string            `json:"persona"`
	Interval         time.Duration     `json:"interval"`
	Pending          int               `json:"pending"`
	Error            string            `json:"error,omitempty"`
}

// Coordinator owns at most one running session and its background worker.
type Coordinator struct {
	deps   Deps
	opts   Options
	logger *log.Logger

	mu         sync.Mutex
	status     Status
	current    *Session
	transcript []Entry // every entry since the last Clear
	interval   time.Duration
	lastErr    error
	cancel     context.CancelFunc
	done       chan struct{}
}

func New(deps Deps, opts Options, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Default().WithPrefix("session")
	}
	if deps.Results == nil {
		deps.Results = results.New(0)
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	def := DefaultOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = def.GenerationTimeout
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = def.PublishTimeout
	}
	return &Coordinator{
		deps:     deps,
		opts:     opts,
		logger:   logger,
		status:   Idle,
		interval: opts.Interval,
	}
}

func (c *Coordinator) Results() *results.Channel { return c.deps.Results }

// Start launches a new session from idle or failed. While a session is
// connecting or streaming it returns that session's id.
func (c *Coordinator) Start() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case Connecting, Streaming:
		return c.current.ID, nil
	case Stopping:
		return "", ErrBusy
	}

	s := newSession(c.deps.Now())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.current = s
	c.status = Connecting
	c.lastErr = nil
	c.cancel = cancel
	c.done = done

	c.logger.Info("session starting", "id", s.ID)
	go c.run(ctx, cancel, s, done)
	return s.ID, nil
}

// Stop cancels the running session and waits for its worker to release
// the microphone and the connection. It is a no-op when nothing runs.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	switch c.status {
	case Connecting, Streaming:
		c.status = Stopping
		c.cancel()
	case Stopping:
	default:
		c.mu.Unlock()
		return nil
	}
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for session to stop: %w", ctx.Err())
	}
}

// Clear stops any running session, forgets every transcript and drains
// the result channel. It returns how many undelivered results were dropped.
func (c *Coordinator) Clear(ctx context.Context) (int, error) {
	if err := c.Stop(ctx); err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.transcript = nil
	c.current = nil
	c.lastErr = nil
	if c.status == Failed {
		c.status = Idle
	}
	c.mu.Unlock()

	n := c.deps.Results.Clear()
	c.logger.Info("transcript cleared", "dropped_results", n)
	return n, nil
}

// GenerateSummary summarizes everything transcribed since the last Clear,
// across sessions.
func (c *Coordinator) GenerateSummary(ctx context.Context) string {
	c.mu.Lock()
	text := formatEntries(c.transcript)
	c.mu.Unlock()
	return c.deps.Policy.GenerateSummary(ctx, text)
}

func (c *Coordinator) SetMode(m facilitation.Mode) { c.deps.Policy.SetMode(m) }

// SetInterval changes the interjection interval; a running session picks
// it up on its next transcript.
func (c *Coordinator) SetInterval(d time.Duration) error {
	if d < MinInterval {
		return fmt.Errorf("interval %s is below the minimum of %s", d, MinInterval)
	}
	c.mu.Lock()
	c.interval = d
	c.mu.Unlock()
	c.logger.Info("interval changed", "interval", d)
	return nil
}

func (c *Coordinator) Status() Snapshot {
	mode := c.deps.Policy.Mode()

	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Status:   c.status,
		Mode:     mode,
		Persona:  mode.Label(),
		Interval: c.interval,
		Pending:  c.deps.Results.Len(),
	}
	if s := c.current; s != nil {
		snap.SessionID = s.ID
		snap.StartedAt = s.StartedAt
		snap.EndedAt = s.EndedAt
		snap.LastInterjection = s.LastInterjection
		snap.Transcripts = len(s.entries)
	}
	if c.lastErr != nil {
		snap.Error = c.lastErr.Error()
	}
	return snap
}

// Done is closed when the current worker exits. It is nil before the
// first Start.
func (c *Coordinator) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Coordinator) run(ctx context.Context, cancel context.CancelFunc, s *Session, done chan struct{}) {
	err := c.stream(ctx, s)
	cancel()
	c.finish(s, err, done)
}

func (c *Coordinator) stream(ctx context.Context, s *Session) error {
	src, err := c.deps.OpenAudio(ctx)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			c.logger.Warn("closing audio source", "err", err)
		}
	}()

	link, err := c.deps.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if err := link.Disconnect(); err != nil {
			c.logger.Warn("disconnecting", "err", err)
		}
	}()

	if !c.transition(Connecting, Streaming) {
		return nil
	}
	c.logger.Info("session streaming", "id", s.ID)
	c.deps.Notifier.SessionStarted()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.capture(gctx, src, link) })
	g.Go(func() error { return c.receive(gctx, s, link) })
	return g.Wait()
}

// capture forwards frames until ctx ends. Overruns and full send queues
// lose audio but keep the session alive; anything else ends it.
func (c *Coordinator) capture(ctx context.Context, src AudioSource, link Link) error {
	var skipped int
	for {
		frame, err := src.ReadFrame(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case recording.IsOverrun(err):
				c.logger.Warn("audio overrun", "err", err)
				continue
			default:
				return err
			}
		}

		if err := link.SendFrame(frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !transcriber.IsTransient(err) {
				return err
			}
			skipped++
			if skipped == 1 || skipped%50 == 0 {
				c.logger.Warn("dropping audio frame", "skipped", skipped, "err", err)
			}
		}
	}
}

func (c *Coordinator) receive(ctx context.Context, s *Session, link Link) error {
	events := link.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return &transcriber.ConnectionClosedError{}
			}
			if ev.Err != nil {
				return ev.Err
			}
			c.dispatch(ctx, s, ev.Transcript)
		}
	}
}

func (c *Coordinator) dispatch(ctx context.Context, s *Session, ev transcriber.TranscriptEvent) {
	if strings.TrimSpace(ev.Text) == "" {
		return
	}
	now := c.deps.Now()
	entry := Entry{At: now, Text: strings.TrimSpace(ev.Text)}

	c.mu.Lock()
	s.append(entry)
	c.transcript = append(c.transcript, entry)
	text := s.Text()
	last := s.LastInterjection
	interval := c.interval
	c.mu.Unlock()

	c.logger.Debug("transcript", "seq", ev.Seq, "text", entry.Text)
	if !c.deps.Results.Publish(ctx, results.TranscriptMessage(s.ID, ev)) {
		return
	}

	// The model call outlives a stop request; Stop waits for it.
	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.GenerationTimeout)
	out := c.deps.Policy.MaybeGenerateInterjection(genCtx, text, now, last, interval)
	cancel()
	if !out.Attempted {
		return
	}

	c.mu.Lock()
	s.LastInterjection = out.AttemptedAt
	c.mu.Unlock()

	if !out.Decision.Actionable() {
		return
	}
	in := results.Interjection{
		At:       out.AttemptedAt,
		Persona:  out.Mode.Label(),
		Decision: out.Decision,
	}
	c.logger.Info("interjection", "persona", in.Persona, "severity", out.Decision.Severity)
	c.deps.Results.Publish(ctx, results.InterjectionMessage(s.ID, in))
	c.deps.Notifier.Interjection(in.Persona, out.Decision.Reply.Comment, out.Decision.Severity)
}

func (c *Coordinator) transition(from, to Status) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != from {
		return false
	}
	c.status = to
	return true
}

func (c *Coordinator) finish(s *Session, err error, done chan struct{}) {
	c.mu.Lock()
	s.EndedAt = c.deps.Now()
	failed := err != nil && c.status != Stopping
	if failed {
		c.status = Failed
		c.lastErr = err
	} else {
		c.status = Idle
	}
	c.mu.Unlock()

	switch {
	case failed:
		c.logger.Error("session failed", "id", s.ID, "err", err)
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.PublishTimeout)
		if !c.deps.Results.Publish(ctx, results.FailureMessage(s.ID, err)) {
			c.logger.Warn("result channel full, failure not reported", "id", s.ID)
		}
		cancel()
		c.deps.Notifier.Error(err.Error())
	case err != nil:
		c.logger.Warn("session ended during stop", "id", s.ID, "err", err)
		c.deps.Notifier.SessionStopped()
	default:
		c.logger.Info("session stopped", "id", s.ID)
		c.deps.Notifier.SessionStopped()
	}
	close(done)
}
