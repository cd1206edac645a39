package util

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"qclctl/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	log, closer := NewLogger(model.LogConfig{Level: "warn"}, &buf)
	defer closer.Close()

	log.Info("hidden")
	log.Warn("shown", "op", "wavenumber")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"op":"wavenumber"`)
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qcl.log")
	var buf bytes.Buffer
	log, closer := NewLogger(model.LogConfig{Level: "debug", Development: true, File: path, MaxSizeMB: 1}, &buf)

	log.Debug("exchange", "command", ":laser:set?")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"command":":laser:set?"`)
	assert.Contains(t, buf.String(), "exchange")
}

func TestWaitForLinks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ttyQCL0")

	err := WaitForLinks(50*time.Millisecond, path)
	require.Error(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(path, nil, 0o600)
	}()
	require.NoError(t, WaitForLinks(2*time.Second, path))
}

func TestSocatPair(t *testing.T) {
	if _, err := exec.LookPath("socat"); err != nil {
		t.Skip("socat not installed")
	}
	dir := t.TempDir()
	left, right := filepath.Join(dir, "ttyA"), filepath.Join(dir, "ttyB")

	m := NewSocatManager(nil)
	require.NoError(t, m.CreatePair(left, right))
	m.Cleanup()
	m.Cleanup()

	_, err := os.Lstat(left)
	assert.True(t, os.IsNotExist(err))
	assert.Error(t, m.CreatePair(left, right))
}
