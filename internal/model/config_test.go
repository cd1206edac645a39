package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := LoadConfig(writeConfig(t, "serial:\n  port: /dev/ttyUSB0\n"))
	require.NoError(err)
	require.Equal("/dev/ttyUSB0", cfg.Serial.Port)
	require.Equal(DefaultBaud, cfg.Serial.Baud)
	require.Equal(time.Second, cfg.Serial.Timeout())
	require.Equal("\n", cfg.Serial.Terminator)
	require.Equal(DefaultMemorySize, cfg.Journal.MemorySize)
	require.Equal(DefaultMaxEntries, cfg.Journal.MaxEntries)
	require.Equal("info", cfg.Log.Level)
	require.Empty(cfg.Monitor.Addr)
}

func TestLoadConfigOverrides(t *testing.T) {
	require := require.New(t)

	cfg, err := LoadConfig(writeConfig(t, `
serial:
  port: COM3
  baud: 9600
  timeout_ms: 250
  terminator: "\r\n"
engine:
  get_retries: 2
log:
  level: debug
  development: true
journal:
  enabled: true
  path: /tmp/qcl.db
monitor:
  addr: ":10000"
  jwt_secret: s3cret
`))
	require.NoError(err)
	require.Equal(9600, cfg.Serial.Baud)
	require.Equal(250*time.Millisecond, cfg.Serial.Timeout())
	require.Equal("\r\n", cfg.Serial.Terminator)
	require.Equal(2, cfg.Engine.GetRetries)
	require.True(cfg.Log.Development)
	require.True(cfg.Journal.Enabled)
	require.Equal("/tmp/qcl.db", cfg.Journal.Path)
	require.Equal("s3cret", cfg.Monitor.JWTSecret)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing port", "serial:\n  baud: 9600\n", "serial.port is required"},
		{"zero timeout", "serial:\n  port: x\n  timeout_ms: 0\n", "serial.timeout_ms"},
		{"negative retries", "serial:\n  port: x\nengine:\n  get_retries: -1\n", "engine.get_retries"},
		{"bad yaml", "serial: [", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
