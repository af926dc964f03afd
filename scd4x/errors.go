package scd4x

import (
	"errors"

	"github.com/mklimuk/co2sensors/sensirion"
)

var (
	// ErrNilSession is returned when a method is called on a nil *SCD4x.
	ErrNilSession = errors.New("nil session")
	// ErrNotInitialized is returned for any command on a session that is not bound to a transport.
	ErrNotInitialized = errors.New("session not initialized")
	// ErrConfiguration is returned by Bind when the transport or delay primitives are incomplete.
	ErrConfiguration = errors.New("incomplete transport configuration")
	// ErrTransport wraps every error returned by the underlying bus.
	ErrTransport = errors.New("transport failure")
	// ErrChecksumMismatch matches any reply whose checksum did not validate; use errors.As
	// with *sensirion.ChecksumError to find the offending word.
	ErrChecksumMismatch = sensirion.ErrChecksumMismatch
	// ErrDataNotReady means the sensor has not completed a measurement since the last read.
	// Poll again later.
	ErrDataNotReady = errors.New("data not ready")

	// Never retryable without changing the request.
	ErrUnsupportedOnVariant = errors.New("command not supported on this sensor variant")
	ErrInvalidArgument      = errors.New("invalid argument")

	// ErrInvalidState is a protocol usage error: the command is not legal in the current mode
	// (e.g. configuring the sensor while it measures).
	ErrInvalidState = errors.New("command not allowed in current state")
	// ErrSelfTest is returned by PerformSelfTest when the sensor reports a malfunction.
	ErrSelfTest = errors.New("self test detected a malfunction")
	// ErrUnknownVariant is returned when the variant register names a chip this driver does not know.
	ErrUnknownVariant = errors.New("unknown sensor variant")
)

// Retryable reports whether repeating the same request can succeed once its precondition
// is met (wait longer, rebind, stop measuring). Variant and argument errors never can.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrUnsupportedOnVariant) && !errors.Is(err, ErrInvalidArgument)
}
