package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/leonardotrapani/tsukkomi/internal/bus"
	"github.com/leonardotrapani/tsukkomi/internal/facilitation"
	"github.com/leonardotrapani/tsukkomi/internal/results"
	"github.com/leonardotrapani/tsukkomi/internal/session"
	"github.com/leonardotrapani/tsukkomi/internal/testutil"
)

type fixture struct {
	d   *Daemon
	gen *testutil.MockGenerator

	mu   sync.Mutex
	link *testutil.MockLink
	src  *testutil.MockSource
}

func (f *fixture) currentLink() *testutil.MockLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.link
}

func startDaemon(t *testing.T, responses ...string) *fixture {
	t.Helper()
	testutil.IsolateXDG(t)

	discard := log.New(io.Discard)
	f := &fixture{gen: testutil.NewMockGenerator(responses...)}
	coord := session.New(session.Deps{
		OpenAudio: func(context.Context) (session.AudioSource, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.src = testutil.NewMockSource()
			return f.src, nil
		},
		Connect: func(context.Context) (session.Link, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.link = testutil.NewMockLink()
			return f.link, nil
		},
		Policy:  facilitation.New(f.gen, facilitation.DefaultConfig(), discard),
		Results: results.New(32),
	}, session.Options{}, discard)
	f.d = newDaemon(coord, nil, discard)

	errCh := make(chan error, 1)
	go func() { errCh <- f.d.Run() }()

	for i := 0; ; i++ {
		if _, err := send(t, bus.Request{Cmd: bus.CmdVersion}); err == nil {
			break
		}
		if i == 50 {
			t.Fatal("daemon failed to start within timeout")
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Cleanup(func() {
		send(t, bus.Request{Cmd: bus.CmdQuit})
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run() = %v", err)
			}
		case <-time.After(3 * time.Second):
			t.Error("daemon did not exit within timeout")
		}
	})
	return f
}

func send(t *testing.T, req bus.Request) (bus.Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return bus.Send(ctx, req)
}

func mustSend(t *testing.T, req bus.Request) bus.Response {
	t.Helper()
	resp, err := send(t, req)
	if err != nil {
		t.Fatalf("%s: %v", req.Cmd, err)
	}
	return resp
}

func TestStartStopStatus(t *testing.T) {
	f := startDaemon(t, `{"should_speak": false}`)

	resp := mustSend(t, bus.Request{Cmd: bus.CmdStatus})
	if resp.Status == nil || resp.Status.Status != session.Idle {
		t.Fatalf("initial status = %+v", resp.Status)
	}

	started := mustSend(t, bus.Request{Cmd: bus.CmdStart})
	if started.SessionID == "" {
		t.Fatal("start returned no session id")
	}
	testutil.WaitForCondition(t, func() bool {
		return mustSend(t, bus.Request{Cmd: bus.CmdStatus}).Status.Status == session.Streaming
	}, 2*time.Second)

	again := mustSend(t, bus.Request{Cmd: bus.CmdStart})
	if again.SessionID != started.SessionID {
		t.Errorf("second start id = %s, want %s", again.SessionID, started.SessionID)
	}

	stopped := mustSend(t, bus.Request{Cmd: bus.CmdStop})
	if stopped.Status.Status != session.Idle {
		t.Errorf("status after stop = %s", stopped.Status.Status)
	}
	if f.currentLink().Disconnects() != 1 {
		t.Errorf("disconnects = %d", f.currentLink().Disconnects())
	}
}

func TestPollDeliversTranscriptsAndInterjections(t *testing.T) {
	f := startDaemon(t, `{"should_speak": true, "reply": {"tsukkomi": "誰が決めたん？"}, "severity": 3}`)
	mustSend(t, bus.Request{Cmd: bus.CmdStart})
	testutil.WaitForCondition(t, func() bool { return f.currentLink() != nil }, 2*time.Second)
	testutil.WaitForCondition(t, func() bool {
		return mustSend(t, bus.Request{Cmd: bus.CmdStatus}).Status.Status == session.Streaming
	}, 2*time.Second)

	f.currentLink().Emit("we should launch Friday")

	var got []results.Message
	testutil.WaitForCondition(t, func() bool {
		got = append(got, mustSend(t, bus.Request{Cmd: bus.CmdPoll}).Messages...)
		return len(got) >= 2
	}, 2*time.Second)

	if got[0].Kind != results.KindTranscript || got[1].Kind != results.KindInterjection {
		t.Fatalf("kinds = %s, %s", got[0].Kind, got[1].Kind)
	}
	if got[1].Interjection.Decision.Reply.Comment != "誰が決めたん？" {
		t.Errorf("interjection = %+v", got[1].Interjection)
	}
}

func TestModeAndInterval(t *testing.T) {
	startDaemon(t)

	resp := mustSend(t, bus.Request{Cmd: bus.CmdMode, Mode: "gentle"})
	if resp.Status.Mode != facilitation.ModeGentle {
		t.Errorf("mode = %s", resp.Status.Mode)
	}

	_, err := send(t, bus.Request{Cmd: bus.CmdMode, Mode: "loud"})
	var remote *bus.RemoteError
	if !errors.As(err, &remote) {
		t.Errorf("bad mode error = %v, want RemoteError", err)
	}

	if _, err := send(t, bus.Request{Cmd: bus.CmdInterval, Interval: "5s"}); err == nil {
		t.Error("interval below minimum accepted")
	}
	if _, err := send(t, bus.Request{Cmd: bus.CmdInterval, Interval: "soon"}); err == nil {
		t.Error("unparsable interval accepted")
	}
	resp = mustSend(t, bus.Request{Cmd: bus.CmdInterval, Interval: "2m"})
	if resp.Status.Interval != 2*time.Minute {
		t.Errorf("interval = %s", resp.Status.Interval)
	}
}

func TestSummaryAndClear(t *testing.T) {
	f := startDaemon(t, `{"should_speak": false}`, "会議のまとめ")

	resp := mustSend(t, bus.Request{Cmd: bus.CmdSummary})
	if !strings.Contains(resp.Summary, "まだありません") {
		t.Errorf("empty summary = %q", resp.Summary)
	}

	mustSend(t, bus.Request{Cmd: bus.CmdStart})
	testutil.WaitForCondition(t, func() bool {
		return mustSend(t, bus.Request{Cmd: bus.CmdStatus}).Status.Status == session.Streaming
	}, 2*time.Second)
	f.currentLink().Emit("予算の話")
	testutil.WaitForCondition(t, func() bool {
		return mustSend(t, bus.Request{Cmd: bus.CmdStatus}).Status.Pending == 1
	}, 2*time.Second)
	testutil.WaitForCondition(t, func() bool { return f.gen.Calls() == 1 }, 2*time.Second)

	resp = mustSend(t, bus.Request{Cmd: bus.CmdSummary})
	if resp.Summary != "会議のまとめ" {
		t.Errorf("summary = %q", resp.Summary)
	}

	resp = mustSend(t, bus.Request{Cmd: bus.CmdClear})
	if resp.Dropped != 1 || resp.Status.Status != session.Idle {
		t.Errorf("clear = dropped %d status %s", resp.Dropped, resp.Status.Status)
	}
}

func TestVersion(t *testing.T) {
	startDaemon(t)
	resp := mustSend(t, bus.Request{Cmd: bus.CmdVersion})
	if !strings.Contains(resp.Version, "proto "+bus.ProtoVer) {
		t.Errorf("version = %q", resp.Version)
	}
}

func TestUnknownAndMalformedRequests(t *testing.T) {
	startDaemon(t)

	if _, err := send(t, bus.Request{Cmd: "toggle"}); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("unknown command error = %v", err)
	}

	conn, err := bus.Dial()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("t\n")); err != nil {
		t.Fatal(err)
	}
	var resp bus.Response
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.OK || !strings.Contains(resp.Error, "malformed") {
		t.Errorf("response = %+v", resp)
	}
}

func TestSecondDaemonRefused(t *testing.T) {
	f := startDaemon(t)
	other := newDaemon(f.d.coord, nil, log.New(io.Discard))
	if err := other.Run(); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Errorf("second Run() = %v", err)
	}
}
