package proxy

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when a call is attempted with no live session.
	ErrNotConnected = errors.New("not connected to worker")
	// ErrCallInFlight is returned when the session already has a call outstanding.
	ErrCallInFlight = errors.New("a call is already in flight")
	// ErrAlreadyConnected is returned by Connect when a session exists or a handshake is pending.
	ErrAlreadyConnected = errors.New("already connected or connecting")
	// ErrTransportFailure matches every TransportError.
	ErrTransportFailure = errors.New("transport failure")
)

// TransportError reports that the channel to the worker broke during Op.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransportFailure
}

// RemoteError is a failure reported by the worker for one call.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("worker error %d: %s", e.Code, e.Message)
}
