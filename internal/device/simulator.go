package device

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// simParam is one quantity held by the simulated controller.
type simParam struct {
	min, max float64
	integer  bool
	format   string // reply format, value then unit
	readOnly bool
}

// Firmware emulates the QCL controller command set. It answers queries with
// "<value><unit>", accepts settings silently, and reports faults as "ERR <code> <text>".
type Firmware struct {
	mu      sync.Mutex
	params  map[string]simParam
	values  map[string]float64
	running bool
	clamp   bool
	mute    bool
}

// NewFirmware returns a controller in its power-on state.
func NewFirmware() *Firmware {
	f := &Firmware{
		params: map[string]simParam{
			":laser:set":   {min: 980.04, max: 1244.99, format: "%.2fcm-1"},
			":pulse:freq":  {min: 1, max: 100, format: "%.1fkHz"},
			":pulse:width": {min: 0.04, max: 0.5, format: "%.2fus"},
			":scan:start":  {min: 980.04, max: 1244.99, format: "%.2fcm-1"},
			":scan:stop":   {min: 980.04, max: 1244.99, format: "%.2fcm-1"},
			":scan:rate":   {min: 1, max: 6, integer: true, format: "%.0f"},
			":scan:cycles": {min: 1, max: 10000, integer: true, format: "%.0f"},
			":info:hhrs":   {min: 0, max: math.MaxFloat64, readOnly: true, format: "%.1fhrs"},
			":scan:count":  {min: 0, max: math.MaxFloat64, integer: true, readOnly: true, format: "%.0f"},
		},
		values: map[string]float64{
			":laser:set":   1080,
			":pulse:freq":  10,
			":pulse:width": 0.1,
			":scan:start":  1000,
			":scan:stop":   1200,
			":scan:rate":   1,
			":scan:cycles": 1,
			":info:hhrs":   1234.5,
			":scan:count":  0,
		},
	}
	return f
}

// SetClamp makes out of range settings clamp to the hardware limit instead of
// being refused with "ERR 2".
func (f *Firmware) SetClamp(clamp bool) {
	f.mu.Lock()
	f.clamp = clamp
	f.mu.Unlock()
}

// SetLimits narrows the hardware range of the parameter behind command.
func (f *Firmware) SetLimits(command string, min, max float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.params[command]; ok {
		p.min, p.max = min, max
		f.params[command] = p
	}
}

// SetMute makes the controller swallow every command without answering.
func (f *Firmware) SetMute(mute bool) {
	f.mu.Lock()
	f.mute = mute
	f.mu.Unlock()
}

// Value returns the stored value of the parameter behind command.
func (f *Firmware) Value(command string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[command]
}

// Running reports whether a scan was started.
func (f *Firmware) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Handle processes one command line and returns the reply lines.
func (f *Firmware) Handle(line string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	line = strings.TrimSpace(line)
	if f.mute || line == "" {
		return nil
	}

	if cmd, ok := strings.CutSuffix(line, "?"); ok {
		p, known := f.params[cmd]
		if !known {
			return []string{"ERR 1 invalid command"}
		}
		if cmd == ":scan:count" && f.running {
			f.advanceScan()
		}
		return []string{fmt.Sprintf(p.format, f.values[cmd])}
	}

	cmd, arg, ok := strings.Cut(line, " ")
	if !ok {
		return []string{"ERR 1 invalid command"}
	}
	if cmd == ":scan:run" {
		switch arg {
		case "1":
			f.running = true
			f.values[":scan:count"] = 0
		case "0":
			f.running = false
		default:
			return []string{"ERR 2 value out of range"}
		}
		return nil
	}

	p, known := f.params[cmd]
	if !known || p.readOnly {
		return []string{"ERR 1 invalid command"}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil || (p.integer && v != math.Trunc(v)) {
		return []string{"ERR 2 value out of range"}
	}
	if v < p.min || v > p.max {
		if !f.clamp {
			return []string{"ERR 2 value out of range"}
		}
		v = math.Max(p.min, math.Min(p.max, v))
	}
	f.values[cmd] = v
	return nil
}

func (f *Firmware) advanceScan() {
	count := f.values[":scan:count"] + 1
	if count >= f.values[":scan:cycles"] {
		count = f.values[":scan:cycles"]
		f.running = false
	}
	f.values[":scan:count"] = count
}

// LoopDevice is an in-memory Device answered by a Firmware.
type LoopDevice struct {
	mu      sync.Mutex
	fw      *Firmware
	replies []string
	open    bool
	sent    []string
}

// NewLoopDevice connects a Firmware as an already opened Device.
func NewLoopDevice(fw *Firmware) *LoopDevice {
	return &LoopDevice{fw: fw, open: true}
}

// WriteLine hands the line to the firmware and queues its replies.
func (d *LoopDevice) WriteLine(s string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrClosed
	}
	d.sent = append(d.sent, s)
	d.replies = append(d.replies, d.fw.Handle(s)...)
	return nil
}

// ReadLine pops the next queued reply. Nothing arrives asynchronously, so an
// empty queue times out at once.
func (d *LoopDevice) ReadLine(timeout time.Duration) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return "", ErrClosed
	}
	if len(d.replies) == 0 {
		return "", &TimeoutError{Timeout: timeout}
	}
	line := d.replies[0]
	d.replies = d.replies[1:]
	return line, nil
}

// ResetInput drops queued replies.
func (d *LoopDevice) ResetInput() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrClosed
	}
	d.replies = nil
	return nil
}

// Close marks the device closed.
func (d *LoopDevice) Close() error {
	d.mu.Lock()
	d.open = false
	d.mu.Unlock()
	return nil
}

// Sent returns every line written so far.
func (d *LoopDevice) Sent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.sent...)
}

// Serve answers commands read from dev until stop is closed or dev fails with
// anything but a timeout. It is the loop behind the simulation binary.
func (f *Firmware) Serve(dev Device, stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		line, err := dev.ReadLine(0)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				continue
			}
			return err
		}
		for _, reply := range f.Handle(line) {
			if err := dev.WriteLine(reply); err != nil {
				return err
			}
		}
	}
}
