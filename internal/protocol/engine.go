// Package protocol implements the command engine of the laser controller: a
// static table of operations, the rendering of wire commands, the reply grammar
// and the value codec, executed as serialized transactions over a device.Device.
//
// Every Get and Set is one self contained transaction:
//
//	render -> reset input -> write -> read (timeout) -> parse -> decode
//
// Only one transaction runs at a time because the controller has no request
// identifiers: a reply belongs to the last command sent.
package protocol

import (
	"context"
	"errors"
	"time"

	"qclctl/internal/device"
	"qclctl/internal/logger"

	"github.com/google/uuid"
)

// DefaultTimeout covers the controller's worst case reply latency.
const DefaultTimeout = time.Second

// Exchange is one command line and its reply as seen on the wire.
type Exchange struct {
	ID          string
	Transaction string
	Time        time.Time
	Operation   string
	Direction   string // "get" or "set"
	Command     string
	Reply       string
	Err         string
	Duration    time.Duration
}

// Recorder receives every wire exchange. Record must not block for long;
// it runs while the transaction lock is held.
type Recorder interface {
	Record(ex Exchange)
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the reply timeout of every exchange.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithGetRetries lets a get be repeated up to n more times after a reply timeout.
// Sets are never retried.
func WithGetRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.getRetries = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithRecorder adds a recorder for wire exchanges.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorders = append(e.recorders, r)
		}
	}
}

// Engine translates logical operations into wire transactions on one device.
// It is safe for concurrent use; transactions are serialized.
type Engine struct {
	sem        chan struct{}
	dev        device.Device
	reg        *Registry
	timeout    time.Duration
	getRetries int
	log        logger.Logger
	recorders  []Recorder
}

// NewEngine creates an engine over dev using the operations in reg.
func NewEngine(dev device.Device, reg *Registry, opts ...Option) *Engine {
	e := &Engine{
		sem:     make(chan struct{}, 1),
		dev:     dev,
		reg:     reg,
		timeout: DefaultTimeout,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "engine")
	return e
}

// Registry returns the operation table.
func (e *Engine) Registry() *Registry { return e.reg }

// Get reads the current value of the named operation.
func (e *Engine) Get(ctx context.Context, name string) (Value, error) {
	op, err := e.reg.lookup(name)
	if err != nil {
		return Value{}, err
	}
	if !op.Readable() {
		return Value{}, &WriteOnlyOperationError{Name: op.Name}
	}

	if err := e.acquire(ctx); err != nil {
		return Value{}, err
	}
	defer e.release()

	tx := uuid.NewString()
	for attempt := 0; ; attempt++ {
		if err := e.dev.ResetInput(); err != nil {
			return Value{}, err
		}
		v, err := e.query(tx, op)
		if err == nil || !errors.Is(err, device.ErrTimeout) || attempt >= e.getRetries {
			return v, err
		}
		e.log.Warn("get timed out, retrying", "op", op.Name, "attempt", attempt+1)
	}
}

// Set validates v, sends it and returns the value the device applied.
//
// When the applied value differs from the request beyond the operation's
// tolerance, Set returns the applied value together with a *ValueRejectedError.
// A failed set is never retried: the device may already have acted on it.
func (e *Engine) Set(ctx context.Context, name string, v any) (Value, error) {
	op, err := e.reg.lookup(name)
	if err != nil {
		return Value{}, err
	}
	if !op.Writable() {
		return Value{}, &ReadOnlyOperationError{Name: op.Name}
	}
	want, err := op.coerce(v)
	if err != nil {
		return Value{}, err
	}
	line := op.render(want)

	if err := e.acquire(ctx); err != nil {
		return Value{}, err
	}
	defer e.release()

	if err := e.dev.ResetInput(); err != nil {
		return Value{}, err
	}

	tx := uuid.NewString()
	var applied Value
	switch op.SetReply {
	case ReplyNone:
		if _, err := e.exchange(tx, op, "set", line, false); err != nil {
			return Value{}, err
		}
		return want, nil
	case ReplyEcho:
		raw, err := e.exchange(tx, op, "set", line, true)
		if err != nil {
			return Value{}, err
		}
		if applied, err = op.parseValue(line, raw); err != nil {
			return Value{}, err
		}
	case ReplyReadback:
		if _, err := e.exchange(tx, op, "set", line, false); err != nil {
			return Value{}, err
		}
		// no ResetInput here: an error reply to the set must reach the read back
		if applied, err = e.query(tx, op); err != nil {
			return Value{}, err
		}
	}

	if !op.matches(want, applied) {
		e.log.Warn("device applied a different value", "op", op.Name, "requested", want, "applied", applied)
		return applied, &ValueRejectedError{Op: op.Name, Requested: want, Applied: applied}
	}
	e.log.Debug("set applied", "op", op.Name, "value", applied)
	return applied, nil
}

// GetAll reads every readable operation. Values read before a failure are
// still returned; the errors of all failed reads are joined.
func (e *Engine) GetAll(ctx context.Context) (map[string]Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	values := make(map[string]Value, len(e.reg.order))
	var errs []error
	for _, name := range e.reg.order {
		if !e.reg.ops[name].Readable() {
			continue
		}
		v, err := e.Get(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return values, err
			}
			errs = append(errs, err)
			continue
		}
		values[name] = v
	}
	return values, errors.Join(errs...)
}

// query sends the get command of op and decodes its reply.
func (e *Engine) query(tx string, op *Operation) (Value, error) {
	raw, err := e.exchange(tx, op, "get", op.GetCommand, true)
	if err != nil {
		return Value{}, err
	}
	return op.parseValue(op.GetCommand, raw)
}

// exchange writes one command line and, if wantReply, reads one reply line.
func (e *Engine) exchange(tx string, op *Operation, dir, line string, wantReply bool) (string, error) {
	start := time.Now()
	ex := Exchange{
		ID:          uuid.NewString(),
		Transaction: tx,
		Time:        start,
		Operation:   op.Name,
		Direction:   dir,
		Command:     line,
	}

	var reply string
	err := e.dev.WriteLine(line)
	if err == nil && wantReply {
		reply, err = e.dev.ReadLine(e.timeout)
	}

	ex.Reply = reply
	ex.Duration = time.Since(start)
	if err != nil {
		ex.Err = err.Error()
		e.log.Warn("exchange failed", "op", op.Name, "command", line, "error", err)
	} else {
		e.log.Debug("exchange", "op", op.Name, "command", line, "reply", reply, "duration", ex.Duration)
	}
	for _, r := range e.recorders {
		r.Record(ex)
	}
	return reply, err
}

// acquire waits for the transaction lock. A caller may give up while waiting;
// once acquired the transaction runs to completion.
func (e *Engine) acquire(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) release() { <-e.sem }
