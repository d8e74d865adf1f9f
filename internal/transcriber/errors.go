package transcriber

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrQueueFull is wrapped by TransientSendError when the outbound queue has
// no room for another frame.
var ErrQueueFull = errors.New("outbound queue full")

// ConnectError is returned by Connect when the socket cannot be opened or
// the server rejects the credentials. It is never retried.
type ConnectError struct {
	Status int // HTTP status of the failed upgrade, 0 if none
	Err    error
}

func (e *ConnectError) Error() string {
	if e.Auth() {
		return fmt.Sprintf("realtime auth rejected (status %d): %v", e.Status, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("realtime connect failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("realtime connect failed: %v", e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Auth reports whether the server refused the API key.
func (e *ConnectError) Auth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// TransientSendError means one frame was not sent. The connection is still usable.
type TransientSendError struct {
	Err error
}

func (e *TransientSendError) Error() string { return fmt.Sprintf("send frame: %v", e.Err) }
func (e *TransientSendError) Unwrap() error { return e.Err }

// ConnectionClosedError means the socket is gone; a new Connect is required.
type ConnectionClosedError struct {
	Err error
}

func (e *ConnectionClosedError) Error() string {
	if e.Err == nil {
		return "realtime connection closed"
	}
	return fmt.Sprintf("realtime connection closed: %v", e.Err)
}

func (e *ConnectionClosedError) Unwrap() error { return e.Err }

// ServerError is an error event reported by the realtime backend.
type ServerError struct {
	Type    string
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("realtime %s: %s: %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("realtime %s: %s", e.Type, e.Message)
}

// Fatal reports whether the server will not accept further audio on this session.
func (e *ServerError) Fatal() bool {
	switch e.Code {
	case "invalid_api_key", "session_expired", "insufficient_quota":
		return true
	}
	return e.Type == "authentication_error"
}

// IsFatal reports whether err ends the connection.
func IsFatal(err error) bool {
	var connectErr *ConnectError
	var closedErr *ConnectionClosedError
	var serverErr *ServerError
	switch {
	case errors.As(err, &connectErr), errors.As(err, &closedErr):
		return true
	case errors.As(err, &serverErr):
		return serverErr.Fatal()
	}
	return false
}

func IsTransient(err error) bool {
	var transient *TransientSendError
	return errors.As(err, &transient)
}
