package device

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrClosed is returned by I/O on a device that is not open.
	ErrClosed = errors.New("device not open")

	// ErrTimeout matches every TimeoutError.
	ErrTimeout = errors.New("reply timeout")
)

// ConnectionError reports a port that could not be opened.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("open serial %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IOError reports a read or write failure on an open port.
type IOError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("serial %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// TimeoutError reports that no terminated line arrived in time.
// Partial holds whatever bytes were received before the deadline.
type TimeoutError struct {
	Timeout time.Duration
	Partial string
}

func (e *TimeoutError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("no reply within %s (partial %q)", e.Timeout, e.Partial)
	}
	return fmt.Sprintf("no reply within %s", e.Timeout)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }
