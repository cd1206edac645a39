package qcl

import (
	"context"

	"qclctl/internal/protocol"
)

// Getter reads controller quantities: c.Get.Wavenumber(ctx).
type Getter struct{ c *Controller }

func (g Getter) Wavenumber(ctx context.Context) (float64, error) {
	return g.c.getFloat(ctx, protocol.Wavenumber)
}

func (g Getter) PulseRate(ctx context.Context) (float64, error) {
	return g.c.getFloat(ctx, protocol.PulseRate)
}

func (g Getter) PulseWidth(ctx context.Context) (float64, error) {
	return g.c.getFloat(ctx, protocol.PulseWidth)
}

func (g Getter) ScanStart(ctx context.Context) (float64, error) {
	return g.c.getFloat(ctx, protocol.ScanStart)
}

func (g Getter) ScanStop(ctx context.Context) (float64, error) {
	return g.c.getFloat(ctx, protocol.ScanStop)
}

func (g Getter) ScanRate(ctx context.Context) (int, error) {
	return g.c.getInt(ctx, protocol.ScanRate)
}

func (g Getter) ScanCycles(ctx context.Context) (int, error) {
	return g.c.getInt(ctx, protocol.ScanCycles)
}

func (g Getter) WorkingHours(ctx context.Context) (float64, error) {
	return g.c.getFloat(ctx, protocol.WorkingHours)
}

func (g Getter) ScanCount(ctx context.Context) (int, error) {
	return g.c.getInt(ctx, protocol.ScanCount)
}

// Value reads any operation by name.
func (g Getter) Value(ctx context.Context, name string) (Value, error) {
	return g.c.eng.Get(ctx, name)
}

// Setter changes controller quantities: c.Set.Wavenumber(ctx, 1080).
// Each method returns the value the controller applied.
type Setter struct{ c *Controller }

func (s Setter) Wavenumber(ctx context.Context, wn float64) (float64, error) {
	return s.c.setFloat(ctx, protocol.Wavenumber, wn)
}

func (s Setter) PulseRate(ctx context.Context, khz float64) (float64, error) {
	return s.c.setFloat(ctx, protocol.PulseRate, khz)
}

func (s Setter) PulseWidth(ctx context.Context, us float64) (float64, error) {
	return s.c.setFloat(ctx, protocol.PulseWidth, us)
}

func (s Setter) ScanStart(ctx context.Context, wn float64) (float64, error) {
	return s.c.setFloat(ctx, protocol.ScanStart, wn)
}

func (s Setter) ScanStop(ctx context.Context, wn float64) (float64, error) {
	return s.c.setFloat(ctx, protocol.ScanStop, wn)
}

func (s Setter) ScanRate(ctx context.Context, rate int) (int, error) {
	return s.c.setInt(ctx, protocol.ScanRate, rate)
}

func (s Setter) ScanCycles(ctx context.Context, n int) (int, error) {
	return s.c.setInt(ctx, protocol.ScanCycles, n)
}

// ScanRun starts (true) or stops (false) a scan run.
func (s Setter) ScanRun(ctx context.Context, run bool) error {
	_, err := s.c.eng.Set(ctx, protocol.ScanRun, run)
	return err
}

// Value sets any operation by name.
func (s Setter) Value(ctx context.Context, name string, v any) (Value, error) {
	return s.c.eng.Set(ctx, name, v)
}
