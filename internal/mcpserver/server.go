// Package mcpserver exposes the daemon's control commands as MCP tools over
// stdio, so an assistant can start a meeting, read the live transcript and
// ask for a summary.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardotrapani/tsukkomi/internal/bus"
	"github.com/leonardotrapani/tsukkomi/internal/results"
	"github.com/leonardotrapani/tsukkomi/internal/session"
)

const (
	shortTimeout = 5 * time.Second
	longTimeout  = 90 * time.Second
)

// Requester is the part of bus.Client the tools need.
type Requester interface {
	Do(ctx context.Context, req bus.Request) (bus.Response, error)
}

type tools struct {
	client Requester
}

// New builds the MCP server. Every tool is one request to the daemon.
func New(client Requester, version string) *server.MCPServer {
	s := server.NewMCPServer("tsukkomi", version, server.WithToolCapabilities(false))
	t := &tools{client: client}

	s.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start transcribing the meeting. Returns the session id and status."),
	), t.simple(bus.CmdStart, shortTimeout))

	s.AddTool(mcp.NewTool("stop_session",
		mcp.WithDescription("Stop the current session. Waits for an in-flight interjection."),
	), t.simple(bus.CmdStop, longTimeout))

	s.AddTool(mcp.NewTool("session_status",
		mcp.WithDescription("Current session state, persona, interval and transcript count."),
	), t.simple(bus.CmdStatus, shortTimeout))

	s.AddTool(mcp.NewTool("set_persona",
		mcp.WithDescription("Switch the facilitator persona."),
		mcp.WithString("mode",
			mcp.Required(),
			mcp.Enum("assertive", "gentle"),
			mcp.Description("assertive (OTOKO☆MAEくん) or gentle (OTO♡MEちゃん)"),
		),
	), t.setMode)

	s.AddTool(mcp.NewTool("set_interval",
		mcp.WithDescription("Set the minimum time between interjections."),
		mcp.WithString("interval",
			mcp.Required(),
			mcp.Description("Go duration such as 90s or 2m, at least 10s"),
		),
	), t.setInterval)

	s.AddTool(mcp.NewTool("read_results",
		mcp.WithDescription("Take queued transcripts, interjections and failures in arrival order. Taken messages are gone."),
		mcp.WithNumber("max", mcp.Description("Maximum messages to take, 0 for all")),
	), t.poll)

	s.AddTool(mcp.NewTool("summarize_meeting",
		mcp.WithDescription("Summarize everything transcribed since the last clear."),
	), t.summary)

	s.AddTool(mcp.NewTool("clear_meeting",
		mcp.WithDescription("Stop the session and forget the transcript and queued results."),
	), t.simple(bus.CmdClear, longTimeout))

	return s
}

// Serve runs the server on stdin/stdout until the client goes away.
func Serve(client Requester, version string) error {
	return server.ServeStdio(New(client, version))
}

func (t *tools) do(ctx context.Context, req bus.Request, timeout time.Duration) (bus.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return t.client.Do(ctx, req)
}

func (t *tools) simple(cmd bus.Command, timeout time.Duration) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := t.do(ctx, bus.Request{Cmd: cmd}, timeout)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(resp)
	}
}

func (t *tools) setMode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode := req.GetString("mode", "")
	if mode == "" {
		return mcp.NewToolResultError("mode is required"), nil
	}
	resp, err := t.do(ctx, bus.Request{Cmd: bus.CmdMode, Mode: mode}, shortTimeout)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(resp)
}

func (t *tools) setInterval(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	interval := req.GetString("interval", "")
	if interval == "" {
		return mcp.NewToolResultError("interval is required"), nil
	}
	resp, err := t.do(ctx, bus.Request{Cmd: bus.CmdInterval, Interval: interval}, shortTimeout)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(resp)
}

func (t *tools) poll(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("max", 0)
	if limit < 0 {
		return mcp.NewToolResultError("max must not be negative"), nil
	}
	resp, err := t.do(ctx, bus.Request{Cmd: bus.CmdPoll, Max: limit}, shortTimeout)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msgs := resp.Messages
	if msgs == nil {
		msgs = []results.Message{}
	}
	return jsonResult(msgs)
}

func (t *tools) summary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := t.do(ctx, bus.Request{Cmd: bus.CmdSummary}, longTimeout)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(resp.Summary), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	if resp, ok := v.(bus.Response); ok {
		// OK and Error are implied by the tool result
		v = struct {
			SessionID string            `json:"session_id,omitempty"`
			Dropped   int               `json:"dropped,omitempty"`
			Status    *session.Snapshot `json:"status,omitempty"`
		}{resp.SessionID, resp.Dropped, resp.Status}
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
