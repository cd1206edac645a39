package protocol

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrReadOnly         = errors.New("operation is read-only")
	ErrWriteOnly        = errors.New("operation is write-only")
	ErrValueOutOfRange  = errors.New("value out of range")
	ErrProtocol         = errors.New("protocol error")
	ErrDecode           = errors.New("decode error")
	ErrValueRejected    = errors.New("value rejected by device")
	ErrInvalidOperation = errors.New("invalid operation definition")
)

// UnknownOperationError is returned for a name missing from the registry.
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation %q", e.Name)
}

func (e *UnknownOperationError) Is(target error) bool { return target == ErrUnknownOperation }

// ReadOnlyOperationError is returned when setting an operation without a set command.
type ReadOnlyOperationError struct {
	Name string
}

func (e *ReadOnlyOperationError) Error() string {
	return fmt.Sprintf("operation %q is read-only", e.Name)
}

func (e *ReadOnlyOperationError) Is(target error) bool { return target == ErrReadOnly }

// WriteOnlyOperationError is returned when reading an action that has no query.
type WriteOnlyOperationError struct {
	Name string
}

func (e *WriteOnlyOperationError) Error() string {
	return fmt.Sprintf("operation %q is write-only", e.Name)
}

func (e *WriteOnlyOperationError) Is(target error) bool { return target == ErrWriteOnly }

// ValueOutOfRangeError rejects a caller value before anything is sent.
type ValueOutOfRangeError struct {
	Name   string
	Value  any
	Reason string
}

func (e *ValueOutOfRangeError) Error() string {
	return fmt.Sprintf("%s: value %v rejected: %s", e.Name, e.Value, e.Reason)
}

func (e *ValueOutOfRangeError) Is(target error) bool { return target == ErrValueOutOfRange }

// FaultKind classifies a reply that does not fit the grammar.
type FaultKind int

const (
	FaultMalformed      FaultKind = iota // payload is not a value of the declared type
	FaultEmpty                           // blank reply line
	FaultPrefix                          // echo prefix missing or wrong
	FaultUnit                            // unit suffix missing or wrong
	FaultInvalidCommand                  // device: command not understood
	FaultDeviceRange                     // device: value out of range
	FaultBusy                            // device: busy
	FaultDeviceError                     // device: any other error code
)

func (k FaultKind) String() string {
	switch k {
	case FaultMalformed:
		return "malformed payload"
	case FaultEmpty:
		return "empty reply"
	case FaultPrefix:
		return "unexpected prefix"
	case FaultUnit:
		return "unit mismatch"
	case FaultInvalidCommand:
		return "invalid command"
	case FaultDeviceRange:
		return "device range error"
	case FaultBusy:
		return "device busy"
	default:
		return "device error"
	}
}

// ProtocolError reports a reply that does not match the expected grammar,
// including error replies sent by the device itself. Raw is the reply as received.
type ProtocolError struct {
	Op      string
	Command string
	Raw     string
	Fault   FaultKind
	Code    string // device error code, if any
	Detail  string
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("%s: %s in reply %q to %q", e.Op, e.Fault, e.Raw, e.Command)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// DeviceReported tells whether the device itself signalled the error.
func (e *ProtocolError) DeviceReported() bool {
	return e.Fault >= FaultInvalidCommand
}

// DecodeError reports a well formed payload that maps to no valid value.
type DecodeError struct {
	Op      string
	Payload string
	Reason  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: cannot decode %q: %s", e.Op, e.Payload, e.Reason)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// ValueRejectedError reports a set the device applied with a different value.
type ValueRejectedError struct {
	Op        string
	Requested Value
	Applied   Value
}

func (e *ValueRejectedError) Error() string {
	return fmt.Sprintf("%s: requested %s, device applied %s", e.Op, e.Requested, e.Applied)
}

func (e *ValueRejectedError) Is(target error) bool { return target == ErrValueRejected }
