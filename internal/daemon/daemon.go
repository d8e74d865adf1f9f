package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/leonardotrapani/tsukkomi/internal/bus"
	"github.com/leonardotrapani/tsukkomi/internal/config"
	"github.com/leonardotrapani/tsukkomi/internal/facilitation"
	"github.com/leonardotrapani/tsukkomi/internal/llm"
	"github.com/leonardotrapani/tsukkomi/internal/notify"
	"github.com/leonardotrapani/tsukkomi/internal/recording"
	"github.com/leonardotrapani/tsukkomi/internal/results"
	"github.com/leonardotrapani/tsukkomi/internal/session"
	"github.com/leonardotrapani/tsukkomi/internal/transcriber"
)

// Version is reported by the version command; set at build time.
var Version = "dev"

const (
	stopTimeout    = 45 * time.Second
	summaryTimeout = 60 * time.Second
)

type Daemon struct {
	coord  *session.Coordinator
	config *config.Manager
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires a coordinator from the managed configuration. The realtime
// and recording settings are read again on every start.
func New(mgr *config.Manager, logger *log.Logger) (*Daemon, error) {
	if logger == nil {
		logger = log.Default()
	}
	cfg := mgr.GetConfig()

	gen, err := llm.NewAdapter(cfg.ToLLMConfig(), logger.WithPrefix("llm"))
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	policy := facilitation.New(gen, cfg.ToFacilitationConfig(), logger.WithPrefix("facilitation"))

	coord := session.New(session.Deps{
		OpenAudio: func(ctx context.Context) (session.AudioSource, error) {
			return recording.Open(ctx, mgr.GetConfig().ToRecordingConfig(), logger.WithPrefix("recording"))
		},
		Connect: func(ctx context.Context) (session.Link, error) {
			return transcriber.Connect(ctx, mgr.GetConfig().ToRealtimeConfig(), logger.WithPrefix("realtime"))
		},
		Policy:   policy,
		Results:  results.New(cfg.Session.ResultBuffer),
		Notifier: notify.New(cfg.NotifierKind(), logger.WithPrefix("notify")),
	}, cfg.ToSessionOptions(), logger.WithPrefix("session"))

	d := newDaemon(coord, mgr, logger)
	mgr.OnReload(d.applyConfig)
	return d, nil
}

func newDaemon(coord *session.Coordinator, mgr *config.Manager, logger *log.Logger) *Daemon {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		coord:  coord,
		config: mgr,
		logger: logger.WithPrefix("daemon"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// applyConfig pushes settings that can change under a running session.
func (d *Daemon) applyConfig(cfg *config.Config) {
	if mode, err := facilitation.ParseMode(cfg.Facilitation.Mode); err == nil {
		d.coord.SetMode(mode)
	}
	if err := d.coord.SetInterval(cfg.Facilitation.Interval); err != nil {
		d.logger.Warn("ignoring interval from config", "err", err)
	}
}

func (d *Daemon) Run() error {
	defer d.cancel()

	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	if d.config != nil {
		if err := d.config.StartWatching(d.ctx); err != nil {
			d.logger.Warn("config hot reload disabled", "err", err)
		}
		defer d.config.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			d.logger.Info("shutting down", "signal", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	d.logger.Info("daemon started", "version", Version, "proto", bus.ProtoVer)

	var runErr error
	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() == nil {
				runErr = fmt.Errorf("accept failed: %w", err)
			}
			break
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.handle(c)
		}()
	}

	d.shutdown()
	return runErr
}

func (d *Daemon) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := d.coord.Stop(ctx); err != nil {
		d.logger.Error("session did not stop cleanly", "err", err)
	}
	d.wg.Wait()
	d.logger.Info("daemon stopped")
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	req, err := bus.ReadRequest(bufio.NewReader(c))
	if err != nil {
		d.logger.Warn("bad request", "err", err)
		_ = bus.WriteJSON(c, bus.Fail(err))
		return
	}

	d.logger.Debug("request", "cmd", req.Cmd)
	resp := d.execute(req)
	if err := bus.WriteJSON(c, resp); err != nil {
		d.logger.Warn("writing response", "cmd", req.Cmd, "err", err)
	}
}

func (d *Daemon) execute(req bus.Request) bus.Response {
	switch req.Cmd {
	case bus.CmdStart:
		id, err := d.coord.Start()
		if err != nil {
			return bus.Fail(err)
		}
		return d.ok(bus.Response{SessionID: id})

	case bus.CmdStop:
		ctx, cancel := context.WithTimeout(d.ctx, stopTimeout)
		defer cancel()
		if err := d.coord.Stop(ctx); err != nil {
			return bus.Fail(err)
		}
		return d.ok(bus.Response{})

	case bus.CmdStatus:
		return d.ok(bus.Response{})

	case bus.CmdMode:
		mode, err := facilitation.ParseMode(req.Mode)
		if err != nil {
			return bus.Fail(err)
		}
		d.coord.SetMode(mode)
		return d.ok(bus.Response{})

	case bus.CmdInterval:
		interval, err := time.ParseDuration(req.Interval)
		if err != nil {
			return bus.Fail(fmt.Errorf("invalid interval %q: %w", req.Interval, err))
		}
		if err := d.coord.SetInterval(interval); err != nil {
			return bus.Fail(err)
		}
		return d.ok(bus.Response{})

	case bus.CmdSummary:
		ctx, cancel := context.WithTimeout(d.ctx, summaryTimeout)
		defer cancel()
		return d.ok(bus.Response{Summary: d.coord.GenerateSummary(ctx)})

	case bus.CmdClear:
		ctx, cancel := context.WithTimeout(d.ctx, stopTimeout)
		defer cancel()
		dropped, err := d.coord.Clear(ctx)
		if err != nil {
			return bus.Fail(err)
		}
		return d.ok(bus.Response{Dropped: dropped})

	case bus.CmdPoll:
		return d.ok(bus.Response{Messages: d.coord.Results().Poll(req.Max)})

	case bus.CmdVersion:
		return bus.Response{OK: true, Version: fmt.Sprintf("%s (proto %s)", Version, bus.ProtoVer)}

	case bus.CmdQuit:
		d.cancel()
		return bus.Response{OK: true}

	default:
		return bus.Fail(errors.New("unknown command " + string(req.Cmd)))
	}
}

// ok attaches the current status to a successful response.
func (d *Daemon) ok(resp bus.Response) bus.Response {
	snap := d.coord.Status()
	resp.OK = true
	resp.Status = &snap
	return resp
}
