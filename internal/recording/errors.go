package recording

import (
	"errors"
	"fmt"
)

// ErrClosed is wrapped by the DeviceError returned from ReadFrame after Close.
var ErrClosed = errors.New("recorder closed")

// DeviceError means the input device could not be opened or was lost.
// It is fatal for the session that owns the recorder.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	if e == nil || e.Err == nil {
		return "audio device error"
	}
	return fmt.Sprintf("audio device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// DeviceOverrunError reports frames dropped because nobody read them in time.
type DeviceOverrunError struct {
	Dropped int64
}

func (e *DeviceOverrunError) Error() string {
	return fmt.Sprintf("audio overrun: %d frames dropped", e.Dropped)
}

func IsOverrun(err error) bool {
	var overrun *DeviceOverrunError
	return errors.As(err, &overrun)
}
