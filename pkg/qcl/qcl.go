// Package qcl is the caller facing API of the QCL laser controller.
//
// Every quantity can be reached two ways that share one dispatch table:
//
//	wn, err := c.Wavenumber(ctx)          // direct
//	wn, err := c.Get.Wavenumber(ctx)      // grouped
//	_, err = c.SetPulseRate(ctx, 20)
//	_, err = c.Set.PulseRate(ctx, 20)
//
// A Controller is safe for concurrent use; exchanges with the device are serialized.
package qcl

import (
	"context"
	"time"

	"qclctl/internal/device"
	"qclctl/internal/logger"
	"qclctl/internal/protocol"
)

// Value is a decoded controller value.
type Value = protocol.Value

// Operation describes one controller quantity.
type Operation = protocol.Operation

type options struct {
	baud       int
	timeout    time.Duration
	terminator string
	retries    int
	log        Logger
	recorders  []Recorder
}

// Option configures Open and New.
type Option func(*options)

// WithBaud overrides the controller's 115200 baud.
func WithBaud(baud int) Option { return func(o *options) { o.baud = baud } }

// WithTimeout sets the reply timeout of every exchange.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithTerminator overrides the "\n" command terminator.
func WithTerminator(term string) Option { return func(o *options) { o.terminator = term } }

// WithGetRetries repeats a timed out read up to n more times. Settings are never repeated.
func WithGetRetries(n int) Option { return func(o *options) { o.retries = n } }

// WithLogger sets the logger of the session and the engine.
func WithLogger(l Logger) Option { return func(o *options) { o.log = l } }

// WithRecorder receives every wire exchange, like the command log of a session.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorders = append(o.recorders, r) }
}

// Controller drives one laser controller.
type Controller struct {
	eng *protocol.Engine
	dev device.Device

	// Get and Set group the accessors by direction.
	Get Getter
	Set Setter
}

// Open opens the serial port and returns a Controller speaking the QCL command set.
func Open(port string, opts ...Option) (*Controller, error) {
	o := collect(opts)
	dev, err := device.NewSerialDevice(port, o.baud,
		device.WithTimeout(o.timeout),
		device.WithTerminator(o.terminator),
		device.WithLogger(o.log),
	)
	if err != nil {
		return nil, err
	}
	return build(dev, o), nil
}

// New returns a Controller over an already open device.
func New(dev device.Device, opts ...Option) *Controller {
	return build(dev, collect(opts))
}

func collect(opts []Option) options {
	o := options{
		baud:       protocol.QCLBaud,
		timeout:    protocol.DefaultTimeout,
		terminator: device.DefaultTerminator,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func build(dev device.Device, o options) *Controller {
	engOpts := []protocol.Option{
		protocol.WithTimeout(o.timeout),
		protocol.WithGetRetries(o.retries),
		protocol.WithLogger(o.log),
	}
	for _, r := range o.recorders {
		engOpts = append(engOpts, protocol.WithRecorder(r))
	}
	c := &Controller{
		eng: protocol.NewEngine(dev, protocol.QCLRegistry(), engOpts...),
		dev: dev,
	}
	c.Get = Getter{c: c}
	c.Set = Setter{c: c}
	return c
}

// Close closes the device.
func (c *Controller) Close() error { return c.dev.Close() }

// Operations lists the controller's command table.
func (c *Controller) Operations() []Operation { return c.eng.Registry().Operations() }

// GetValue reads the operation called name.
func (c *Controller) GetValue(ctx context.Context, name string) (Value, error) {
	return c.eng.Get(ctx, name)
}

// SetValue sets the operation called name and returns the value the controller applied.
func (c *Controller) SetValue(ctx context.Context, name string, v any) (Value, error) {
	return c.eng.Set(ctx, name, v)
}

// All reads every readable quantity.
func (c *Controller) All(ctx context.Context) (map[string]Value, error) {
	return c.eng.GetAll(ctx)
}

func (c *Controller) getFloat(ctx context.Context, name string) (float64, error) {
	v, err := c.eng.Get(ctx, name)
	return v.Number(), err
}

func (c *Controller) getInt(ctx context.Context, name string) (int, error) {
	v, err := c.eng.Get(ctx, name)
	return int(v.Int), err
}

// setFloat returns the applied value even when err is a *ValueRejectedError.
func (c *Controller) setFloat(ctx context.Context, name string, f float64) (float64, error) {
	v, err := c.eng.Set(ctx, name, f)
	return v.Number(), err
}

func (c *Controller) setInt(ctx context.Context, name string, n int) (int, error) {
	v, err := c.eng.Set(ctx, name, n)
	return int(v.Int), err
}

// Wavenumber returns the emission wavenumber in cm-1.
func (c *Controller) Wavenumber(ctx context.Context) (float64, error) {
	return c.getFloat(ctx, protocol.Wavenumber)
}

// SetWavenumber tunes the laser to wn cm-1.
func (c *Controller) SetWavenumber(ctx context.Context, wn float64) (float64, error) {
	return c.setFloat(ctx, protocol.Wavenumber, wn)
}

// PulseRate returns the pulse repetition rate in kHz.
func (c *Controller) PulseRate(ctx context.Context) (float64, error) {
	return c.getFloat(ctx, protocol.PulseRate)
}

func (c *Controller) SetPulseRate(ctx context.Context, khz float64) (float64, error) {
	return c.setFloat(ctx, protocol.PulseRate, khz)
}

// PulseWidth returns the pulse width in µs.
func (c *Controller) PulseWidth(ctx context.Context) (float64, error) {
	return c.getFloat(ctx, protocol.PulseWidth)
}

func (c *Controller) SetPulseWidth(ctx context.Context, us float64) (float64, error) {
	return c.setFloat(ctx, protocol.PulseWidth, us)
}

func (c *Controller) ScanStart(ctx context.Context) (float64, error) {
	return c.getFloat(ctx, protocol.ScanStart)
}

func (c *Controller) SetScanStart(ctx context.Context, wn float64) (float64, error) {
	return c.setFloat(ctx, protocol.ScanStart, wn)
}

func (c *Controller) ScanStop(ctx context.Context) (float64, error) {
	return c.getFloat(ctx, protocol.ScanStop)
}

func (c *Controller) SetScanStop(ctx context.Context, wn float64) (float64, error) {
	return c.setFloat(ctx, protocol.ScanStop, wn)
}

func (c *Controller) ScanRate(ctx context.Context) (int, error) {
	return c.getInt(ctx, protocol.ScanRate)
}

func (c *Controller) SetScanRate(ctx context.Context, rate int) (int, error) {
	return c.setInt(ctx, protocol.ScanRate, rate)
}

// ScanCycles returns the number of scans in a run.
func (c *Controller) ScanCycles(ctx context.Context) (int, error) {
	return c.getInt(ctx, protocol.ScanCycles)
}

func (c *Controller) SetScanCycles(ctx context.Context, n int) (int, error) {
	return c.setInt(ctx, protocol.ScanCycles, n)
}

// WorkingHours returns the laser head working hours.
func (c *Controller) WorkingHours(ctx context.Context) (float64, error) {
	return c.getFloat(ctx, protocol.WorkingHours)
}

// ScanCount returns the scans completed in the current run.
func (c *Controller) ScanCount(ctx context.Context) (int, error) {
	return c.getInt(ctx, protocol.ScanCount)
}

// StartScan starts a scan run between ScanStart and ScanStop.
func (c *Controller) StartScan(ctx context.Context) error {
	_, err := c.eng.Set(ctx, protocol.ScanRun, true)
	return err
}

// StopScan aborts the scan run.
func (c *Controller) StopScan(ctx context.Context) error {
	_, err := c.eng.Set(ctx, protocol.ScanRun, false)
	return err
}
