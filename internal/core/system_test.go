package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"qclctl/internal/device"
	"qclctl/internal/logger"
	"qclctl/internal/model"
	"qclctl/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loopOpener(fw *device.Firmware) (OpenFunc, *[]model.SerialConfig) {
	var seen []model.SerialConfig
	return func(cfg model.SerialConfig, _ logger.Logger) (device.Device, error) {
		seen = append(seen, cfg)
		return device.NewLoopDevice(fw), nil
	}, &seen
}

func TestSystemFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := `
serial:
  port: /dev/ttyQCL
  timeout_ms: 200
engine:
  get_retries: 1
journal:
  enabled: true
  path: ` + filepath.Join(dir, "journal.db") + `
  memory_size: 8
monitor:
  addr: "127.0.0.1:0"
  jwt_secret: s3cret
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)

	open, seen := loopOpener(device.NewFirmware())
	sys, err := NewSystemFromConfig(cfg, open, nil)
	require.NoError(t, err)

	require.Len(t, *seen, 1)
	assert.Equal(t, "/dev/ttyQCL", (*seen)[0].Port)
	assert.Equal(t, model.DefaultBaud, (*seen)[0].Baud)
	require.NotNil(t, sys.Memory)
	require.NotNil(t, sys.Store)
	require.NotNil(t, sys.Monitor)
	require.NotNil(t, sys.Hub)

	_, err = sys.Engine.Set(context.Background(), protocol.ScanRate, 3)
	require.NoError(t, err)

	stored, err := sys.Store.List(0)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, ":scan:rate 3", stored[0].Command)

	mem, _ := sys.Memory.List(0)
	assert.Len(t, mem, 2)

	require.NoError(t, sys.StopAll())
	require.NoError(t, sys.StopAll())
}

func TestSystemWithoutExtras(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Serial.Port = "/dev/ttyQCL"

	open, _ := loopOpener(device.NewFirmware())
	sys, err := NewSystemFromConfig(&cfg, open, nil)
	require.NoError(t, err)
	assert.Nil(t, sys.Memory)
	assert.Nil(t, sys.Store)
	assert.Nil(t, sys.Monitor)

	require.NoError(t, sys.StartAll())
	v, err := sys.Engine.Get(context.Background(), protocol.WorkingHours)
	require.NoError(t, err)
	assert.Equal(t, 1234.5, v.Float)
	require.NoError(t, sys.StopAll())
}

func TestSystemOpenFailure(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Serial.Port = "/dev/missing"

	openErr := &device.ConnectionError{Port: "/dev/missing", Err: errors.New("no such file")}
	_, err := NewSystemFromConfig(&cfg, func(model.SerialConfig, logger.Logger) (device.Device, error) {
		return nil, openErr
	}, nil)
	require.ErrorIs(t, err, openErr)

	cfg.Serial.Port = ""
	_, err = NewSystemFromConfig(&cfg, OpenSerial, nil)
	require.ErrorContains(t, err, "serial.port is required")
}
