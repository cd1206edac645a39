// Package device defines the line oriented transport to the laser controller
// and its implementations: a serial port session and an in-memory simulator.
package device

import "time"

// Device is a line oriented, half duplex link to a controller.
// Implementations are not safe for concurrent exchanges; callers serialize them.
type Device interface {
	// ReadLine reads a single reply line with the terminator stripped.
	// A timeout <= 0 selects the device default.
	ReadLine(timeout time.Duration) (string, error)

	// WriteLine writes s followed by the command terminator.
	WriteLine(s string) error

	// ResetInput discards any unread input, such as a late reply to a timed out command.
	ResetInput() error

	// Close closes the device and releases underlying resources.
	Close() error
}
