package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardotrapani/tsukkomi/internal/bus"
	"github.com/leonardotrapani/tsukkomi/internal/results"
	"github.com/leonardotrapani/tsukkomi/internal/session"
	"github.com/leonardotrapani/tsukkomi/internal/transcriber"
)

type fakeDaemon struct {
	mu   sync.Mutex
	reqs []bus.Request
	resp bus.Response
	err  error
}

func (f *fakeDaemon) Do(ctx context.Context, req bus.Request) (bus.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return bus.Response{}, errors.New("request without deadline")
	}
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

func (f *fakeDaemon) requests() []bus.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bus.Request(nil), f.reqs...)
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return tc.Text
}

func TestSimpleToolsSendCommand(t *testing.T) {
	f := &fakeDaemon{resp: bus.Response{OK: true, SessionID: "s1", Status: &session.Snapshot{Status: session.Streaming}}}
	tl := &tools{client: f}

	for _, cmd := range []bus.Command{bus.CmdStart, bus.CmdStop, bus.CmdStatus, bus.CmdClear} {
		res, err := tl.simple(cmd, time.Second)(context.Background(), call(nil))
		if err != nil {
			t.Fatalf("%s: %v", cmd, err)
		}
		if res.IsError {
			t.Fatalf("%s: error result %q", cmd, text(t, res))
		}
		var out struct {
			SessionID string            `json:"session_id"`
			Status    *session.Snapshot `json:"status"`
		}
		if err := json.Unmarshal([]byte(text(t, res)), &out); err != nil {
			t.Fatalf("%s: %v", cmd, err)
		}
		if out.SessionID != "s1" || out.Status == nil || out.Status.Status != session.Streaming {
			t.Errorf("%s: result = %+v", cmd, out)
		}
	}

	reqs := f.requests()
	if len(reqs) != 4 || reqs[0].Cmd != bus.CmdStart || reqs[3].Cmd != bus.CmdClear {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestDaemonErrorBecomesToolError(t *testing.T) {
	tl := &tools{client: &fakeDaemon{err: bus.ErrNoDaemon}}
	res, err := tl.simple(bus.CmdStatus, time.Second)(context.Background(), call(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(text(t, res), "daemon not running") {
		t.Errorf("result = %+v", res)
	}
}

func TestSetPersonaAndInterval(t *testing.T) {
	f := &fakeDaemon{resp: bus.Response{OK: true}}
	tl := &tools{client: f}
	ctx := context.Background()

	res, _ := tl.setMode(ctx, call(map[string]any{"mode": "gentle"}))
	if res.IsError {
		t.Fatalf("set mode: %s", text(t, res))
	}
	res, _ = tl.setInterval(ctx, call(map[string]any{"interval": "2m"}))
	if res.IsError {
		t.Fatalf("set interval: %s", text(t, res))
	}

	want := []bus.Request{
		{Cmd: bus.CmdMode, Mode: "gentle"},
		{Cmd: bus.CmdInterval, Interval: "2m"},
	}
	got := f.requests()
	if len(got) != len(want) {
		t.Fatalf("requests = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("request %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMissingArgumentsAreRejectedLocally(t *testing.T) {
	f := &fakeDaemon{resp: bus.Response{OK: true}}
	tl := &tools{client: f}
	ctx := context.Background()

	if res, _ := tl.setMode(ctx, call(nil)); !res.IsError {
		t.Error("set_persona without mode should fail")
	}
	if res, _ := tl.setInterval(ctx, call(map[string]any{})); !res.IsError {
		t.Error("set_interval without interval should fail")
	}
	if res, _ := tl.poll(ctx, call(map[string]any{"max": -1})); !res.IsError {
		t.Error("negative max should fail")
	}
	if n := len(f.requests()); n != 0 {
		t.Errorf("%d requests reached the daemon", n)
	}
}

func TestReadResults(t *testing.T) {
	msgs := []results.Message{
		results.TranscriptMessage("s1", transcriber.TranscriptEvent{Seq: 1, Text: "はい"}),
		results.FailureMessage("s1", errors.New("boom")),
	}
	f := &fakeDaemon{resp: bus.Response{OK: true, Messages: msgs}}
	tl := &tools{client: f}

	res, _ := tl.poll(context.Background(), call(map[string]any{"max": 2}))
	var got []results.Message
	if err := json.Unmarshal([]byte(text(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Transcript.Text != "はい" || got[1].Kind != results.KindFailure {
		t.Errorf("got %+v", got)
	}
	if f.requests()[0].Max != 2 {
		t.Errorf("max not forwarded: %+v", f.requests()[0])
	}

	f.resp = bus.Response{OK: true}
	res, _ = tl.poll(context.Background(), call(nil))
	if got := text(t, res); got != "[]" {
		t.Errorf("empty poll = %q, want []", got)
	}
}

func TestSummarize(t *testing.T) {
	tl := &tools{client: &fakeDaemon{resp: bus.Response{OK: true, Summary: "## 決定事項"}}}
	res, _ := tl.summary(context.Background(), call(nil))
	if got := text(t, res); got != "## 決定事項" {
		t.Errorf("summary = %q", got)
	}
}

func TestToolsAreListed(t *testing.T) {
	s := New(&fakeDaemon{}, "test")
	msg := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"start_session", "stop_session", "session_status", "set_persona", "set_interval", "read_results", "summarize_meeting", "clear_meeting"} {
		if !strings.Contains(string(b), `"`+name+`"`) {
			t.Errorf("tool %s not listed in %s", name, b)
		}
	}
}
