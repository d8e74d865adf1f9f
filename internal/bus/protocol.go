package bus

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/leonardotrapani/tsukkomi/internal/results"
	"github.com/leonardotrapani/tsukkomi/internal/session"
)

// ProtoVer changes whenever Request or Response change incompatibly.
const ProtoVer = "1"

type Command string

const (
	CmdStart    Command = "start"
	CmdStop     Command = "stop"
	CmdStatus   Command = "status"
	CmdMode     Command = "mode"
	CmdInterval Command = "interval"
	CmdSummary  Command = "summary"
	CmdClear    Command = "clear"
	CmdPoll     Command = "poll"
	CmdQuit     Command = "quit"
	CmdVersion  Command = "version"
)

// Request is one line of JSON sent by a client. Only the fields for Cmd
// are read.
type Request struct {
	Cmd      Command `json:"cmd"`
	Mode     string  `json:"mode,omitempty"`
	Interval string  `json:"interval,omitempty"`
	Max      int     `json:"max,omitempty"`
}

// Response is the single line of JSON the daemon answers with.
type Response struct {
	OK        bool              `json:"ok"`
	Error     string            `json:"error,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Status    *session.Snapshot `json:"status,omitempty"`
	Messages  []results.Message `json:"messages,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	Dropped   int               `json:"dropped,omitempty"`
	Version   string            `json:"version,omitempty"`
}

func Fail(err error) Response {
	return Response{Error: err.Error()}
}

// RemoteError is a request the daemon understood and refused.
type RemoteError struct {
	Cmd Command
	Msg string
}

func (e *RemoteError) Error() string { return fmt.Sprintf("%s: %s", e.Cmd, e.Msg) }

// ErrNoDaemon means nothing is listening on the control socket.
var ErrNoDaemon = errors.New("daemon not running (start it with: tsukkomi serve)")

func WriteJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func ReadRequest(r *bufio.Reader) (Request, error) {
	var req Request
	line, err := r.ReadBytes('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return req, err
	}
	if err := json.Unmarshal(line, &req); err != nil {
		return req, fmt.Errorf("malformed request: %w", err)
	}
	if req.Cmd == "" {
		return req, errors.New("malformed request: missing cmd")
	}
	return req, nil
}

// Client sends requests to the daemon, one connection per request.
type Client struct {
	sock *socketManager
}

func NewClient() (*Client, error) {
	sm, err := newSocketManager()
	if err != nil {
		return nil, err
	}
	return &Client{sock: sm}, nil
}

// Do sends req and waits for the answer or ctx. A refused request is
// returned as *RemoteError together with the response.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	conn, err := c.sock.dial()
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrNoDaemon, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := WriteJSON(conn, req); err != nil {
		return Response{}, fmt.Errorf("send %s: %w", req.Cmd, err)
	}

	var resp Response
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&resp); err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return Response{}, context.DeadlineExceeded
		}
		return Response{}, fmt.Errorf("read %s response: %w", req.Cmd, err)
	}
	if !resp.OK {
		return resp, &RemoteError{Cmd: req.Cmd, Msg: resp.Error}
	}
	return resp, nil
}

// Send is Do with a fresh client.
func Send(ctx context.Context, req Request) (Response, error) {
	c, err := NewClient()
	if err != nil {
		return Response{}, err
	}
	return c.Do(ctx, req)
}
