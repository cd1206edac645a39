package qcl

import (
	"io"

	"qclctl/internal/journal"
	"qclctl/internal/logger"
	"qclctl/internal/protocol"
)

// Logger is the structured logger a Controller writes to.
type Logger = logger.Logger

// Level is a Logger severity.
type Level = logger.Level

const (
	DebugLevel = logger.DebugLevel
	InfoLevel  = logger.InfoLevel
	WarnLevel  = logger.WarnLevel
	ErrorLevel = logger.ErrorLevel
)

// NewLogger returns a slog based Logger writing to w, as JSON or, in
// development mode, as colored console lines.
func NewLogger(w io.Writer, level Level, development bool) Logger {
	return logger.NewSlog(w, level, development)
}

// Exchange is one command line and its reply as seen on the wire.
type Exchange = protocol.Exchange

// Recorder receives every wire exchange of a Controller. Record runs while the
// session is locked and must return quickly.
type Recorder = protocol.Recorder

// CommandLog keeps the most recent exchanges in memory.
type CommandLog = journal.Memory

// Entry is one exchange held by a CommandLog.
type Entry = journal.Entry

// NewCommandLog returns a CommandLog holding up to size exchanges, 256 when size <= 0.
func NewCommandLog(size int) *CommandLog { return journal.NewMemory(size) }

// Transcript renders entries as the command and reply lines sent over the wire.
func Transcript(entries []Entry) []string { return journal.Lines(entries) }
