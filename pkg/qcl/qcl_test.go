package qcl

import (
	"context"
	"errors"
	"sync"
	"testing"

	"qclctl/internal/device"
	"qclctl/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transcript struct {
	mu    sync.Mutex
	lines []string
}

func (t *transcript) Record(ex protocol.Exchange) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, ex.Command)
}

func newController(t *testing.T, opts ...Option) (*Controller, *device.Firmware) {
	t.Helper()
	fw := device.NewFirmware()
	c := New(device.NewLoopDevice(fw), opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c, fw
}

func TestDirectAndGroupedAccessorsAgree(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)

	applied, err := c.SetWavenumber(ctx, 1150.25)
	require.NoError(t, err)
	assert.Equal(t, 1150.25, applied)

	direct, err := c.Wavenumber(ctx)
	require.NoError(t, err)
	grouped, err := c.Get.Wavenumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, direct, grouped)

	_, err = c.Set.PulseWidth(ctx, 0.3)
	require.NoError(t, err)
	us, err := c.PulseWidth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.3, us)

	_, err = c.Set.ScanRate(ctx, 5)
	require.NoError(t, err)
	rate, err := c.ScanRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, rate)

	v, err := c.Get.Value(ctx, "scan-rate")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Int)
}

func TestEveryQuantity(t *testing.T) {
	ctx := context.Background()
	c, fw := newController(t)

	floats := []struct {
		set func(context.Context, float64) (float64, error)
		get func(context.Context) (float64, error)
		v   float64
		cmd string
	}{
		{c.SetWavenumber, c.Get.Wavenumber, 1000.5, ":laser:set"},
		{c.SetPulseRate, c.Get.PulseRate, 42, ":pulse:freq"},
		{c.Set.PulseWidth, c.PulseWidth, 0.05, ":pulse:width"},
		{c.SetScanStart, c.Get.ScanStart, 990, ":scan:start"},
		{c.Set.ScanStop, c.ScanStop, 1240, ":scan:stop"},
	}
	for _, f := range floats {
		_, err := f.set(ctx, f.v)
		require.NoError(t, err, f.cmd)
		got, err := f.get(ctx)
		require.NoError(t, err, f.cmd)
		assert.Equal(t, f.v, got, f.cmd)
		assert.Equal(t, f.v, fw.Value(f.cmd), f.cmd)
	}

	_, err := c.SetScanCycles(ctx, 2)
	require.NoError(t, err)
	cycles, err := c.Get.ScanCycles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cycles)

	hours, err := c.WorkingHours(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1234.5, hours)
	hours, err = c.Get.WorkingHours(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1234.5, hours)
}

func TestScanControl(t *testing.T) {
	ctx := context.Background()
	c, fw := newController(t)

	_, err := c.SetScanCycles(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, c.StartScan(ctx))
	assert.True(t, fw.Running())

	n, err := c.ScanCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = c.Get.ScanCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, fw.Running())

	require.NoError(t, c.Set.ScanRun(ctx, true))
	require.NoError(t, c.StopScan(ctx))
	assert.False(t, fw.Running())
}

func TestErrorsAreReexported(t *testing.T) {
	ctx := context.Background()
	c, fw := newController(t)

	_, err := c.SetWavenumber(ctx, 2000)
	assert.ErrorIs(t, err, ErrValueOutOfRange)
	var rangeErr *ValueOutOfRangeError
	assert.True(t, errors.As(err, &rangeErr))

	_, err = c.SetValue(ctx, protocol.WorkingHours, 1)
	assert.ErrorIs(t, err, ErrReadOnly)

	_, err = c.GetValue(ctx, protocol.ScanRun)
	assert.ErrorIs(t, err, ErrWriteOnly)

	_, err = c.Set.Value(ctx, "power", 1)
	assert.ErrorIs(t, err, ErrUnknownOperation)

	fw.SetLimits(":pulse:freq", 1, 20)
	fw.SetClamp(true)
	applied, err := c.SetPulseRate(ctx, 30)
	assert.ErrorIs(t, err, ErrValueRejected)
	assert.Equal(t, 20.0, applied)

	fw.SetMute(true)
	_, err = c.ScanRate(ctx)
	assert.ErrorIs(t, err, ErrTimeout)
	var timeout *TimeoutError
	assert.True(t, errors.As(err, &timeout))
}

func TestAllAndRecorder(t *testing.T) {
	rec := &transcript{}
	c, _ := newController(t, WithRecorder(rec), WithGetRetries(1))

	values, err := c.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, values, 9)
	assert.Equal(t, 10.0, values["pulse_rate"].Float)
	assert.Len(t, c.Operations(), 10)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.lines, 9)
	assert.Equal(t, ":laser:set?", rec.lines[0])
}

func TestOpenMissingPort(t *testing.T) {
	_, err := Open("/dev/qcl-does-not-exist")
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "/dev/qcl-does-not-exist", connErr.Port)
}
