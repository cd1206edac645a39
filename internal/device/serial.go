package device

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"time"

	"qclctl/internal/logger"

	serial "go.bug.st/serial"
)

// portHandle is the subset of serial.Port the session relies on.
type portHandle interface {
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Close() error
}

// openPort is replaced in tests.
var openPort = func(name string, mode *serial.Mode) (portHandle, error) {
	return serial.Open(name, mode)
}

const (
	DefaultBaud       = 115200
	DefaultTimeout    = time.Second
	DefaultTerminator = "\n"

	readChunk = 64
)

// Option configures a SerialDevice.
type Option func(*SerialDevice)

// WithTimeout sets the reply timeout used when ReadLine gets no explicit one.
func WithTimeout(d time.Duration) Option {
	return func(s *SerialDevice) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithTerminator sets the string appended to every written line.
func WithTerminator(term string) Option {
	return func(s *SerialDevice) {
		if term != "" {
			s.term = term
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l logger.Logger) Option {
	return func(s *SerialDevice) {
		if l != nil {
			s.log = l
		}
	}
}

// SerialDevice implements Device using go.bug.st/serial.
// It owns exactly one port handle; Close and Open may be called repeatedly.
type SerialDevice struct {
	mu      sync.Mutex
	port    portHandle
	pending []byte
	buf     []byte

	dev     string
	baud    int
	timeout time.Duration
	term    string
	log     logger.Logger
}

// NewSerialDevice creates and opens a serial device with the given path and baudrate.
func NewSerialDevice(dev string, baud int, opts ...Option) (*SerialDevice, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	s := &SerialDevice{
		dev:     dev,
		baud:    baud,
		timeout: DefaultTimeout,
		term:    DefaultTerminator,
		log:     logger.Nop(),
		buf:     make([]byte, readChunk),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "serial", "port", dev)

	if err := s.Open(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open ensures that the serial port is open. It is a no-op on an open device.
func (s *SerialDevice) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked()
}

func (s *SerialDevice) openLocked() error {
	if s.port != nil {
		return nil
	}
	p, err := openPort(s.dev, &serial.Mode{BaudRate: s.baud})
	if err != nil {
		return &ConnectionError{Port: s.dev, Err: err}
	}
	if err := p.SetReadTimeout(s.timeout); err != nil {
		_ = p.Close()
		return &ConnectionError{Port: s.dev, Err: err}
	}
	s.port = p
	s.pending = s.pending[:0]
	s.log.Info("serial port opened", "baud", s.baud, "timeout", s.timeout)
	return nil
}

// Reconnect closes and reopens the port, dropping buffered input.
func (s *SerialDevice) Reconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.closeLocked(); err != nil {
		s.log.Warn("close before reconnect failed", "error", err)
	}
	return s.openLocked()
}

// IsOpen reports whether the port handle is held.
func (s *SerialDevice) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

// Port returns the device path.
func (s *SerialDevice) Port() string { return s.dev }

// Timeout returns the default reply timeout.
func (s *SerialDevice) Timeout() time.Duration { return s.timeout }

// Close closes the underlying serial connection. Closing a closed device is a no-op.
func (s *SerialDevice) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *SerialDevice) closeLocked() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.pending = s.pending[:0]
	s.log.Info("serial port closed")
	return err
}

// WriteLine writes a single line followed by the terminator.
func (s *SerialDevice) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return ErrClosed
	}
	data := []byte(line + s.term)
	for len(data) > 0 {
		n, err := s.port.Write(data)
		if err != nil {
			return &IOError{Op: "write", Err: err}
		}
		if n == 0 {
			return &IOError{Op: "write", Err: io.ErrShortWrite}
		}
		data = data[n:]
	}
	return nil
}

// ReadLine reads bytes until a '\n' arrives or the timeout elapses.
// A trailing '\r' is stripped; bytes after the newline are kept for the next call.
func (s *SerialDevice) ReadLine(timeout time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return "", ErrClosed
	}
	if timeout <= 0 {
		timeout = s.timeout
	}

	deadline := time.Now().Add(timeout)
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := strings.TrimRight(string(s.pending[:i]), "\r")
			s.pending = append(s.pending[:0], s.pending[i+1:]...)
			return line, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", &TimeoutError{Timeout: timeout, Partial: string(s.pending)}
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return "", &IOError{Op: "read", Err: err}
		}

		// go.bug.st/serial reports a read timeout as (0, nil)
		n, err := s.port.Read(s.buf)
		if err != nil {
			return "", &IOError{Op: "read", Err: err}
		}
		s.pending = append(s.pending, s.buf[:n]...)
	}
}

// ResetInput drops buffered bytes both in the session and in the OS driver.
func (s *SerialDevice) ResetInput() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return ErrClosed
	}
	if len(s.pending) > 0 {
		s.log.Debug("discarding stale input", "bytes", string(s.pending))
	}
	s.pending = s.pending[:0]
	if err := s.port.ResetInputBuffer(); err != nil {
		return &IOError{Op: "reset", Err: err}
	}
	return nil
}
