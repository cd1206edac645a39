// Package util provides process level helpers: logger construction from
// configuration and virtual serial pairs for the simulator.
package util

import (
	"io"
	"os"

	"qclctl/internal/logger"
	"qclctl/internal/model"

	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the process logger described by cfg. Records go to console,
// and also to a size rotated file when cfg.File is set. The returned closer
// flushes and closes that file.
func NewLogger(cfg model.LogConfig, console io.Writer) (logger.Logger, io.Closer) {
	if console == nil {
		console = os.Stderr
	}
	level := logger.ParseLevel(cfg.Level)
	if cfg.File == "" {
		return logger.NewSlog(console, level, cfg.Development), nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
	// the file always gets JSON so it stays machine readable
	if cfg.Development {
		return logger.NewTee(
			logger.NewSlog(console, level, true),
			logger.NewSlog(file, level, false),
		), file
	}
	return logger.NewSlog(io.MultiWriter(console, file), level, false), file
}
