package qcl

import (
	"qclctl/internal/device"
	"qclctl/internal/protocol"
)

// Errors returned by a Controller. Match sentinels with errors.Is and
// inspect details with errors.As on the typed errors.
var (
	ErrClosed           = device.ErrClosed
	ErrTimeout          = device.ErrTimeout
	ErrUnknownOperation = protocol.ErrUnknownOperation
	ErrReadOnly         = protocol.ErrReadOnly
	ErrWriteOnly        = protocol.ErrWriteOnly
	ErrValueOutOfRange  = protocol.ErrValueOutOfRange
	ErrProtocol         = protocol.ErrProtocol
	ErrDecode           = protocol.ErrDecode
	ErrValueRejected    = protocol.ErrValueRejected
)

type (
	ConnectionError         = device.ConnectionError
	IOError                 = device.IOError
	TimeoutError            = device.TimeoutError
	UnknownOperationError   = protocol.UnknownOperationError
	ReadOnlyOperationError  = protocol.ReadOnlyOperationError
	WriteOnlyOperationError = protocol.WriteOnlyOperationError
	ValueOutOfRangeError    = protocol.ValueOutOfRangeError
	ProtocolError           = protocol.ProtocolError
	DecodeError             = protocol.DecodeError
	ValueRejectedError      = protocol.ValueRejectedError
)
