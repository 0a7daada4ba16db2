package ipc

import (
	"errors"
	"fmt"
)

// ErrClosed is reported when the peer closed the connection before replying.
var ErrClosed = errors.New("ipc: connection closed by peer")

type TransportOp string

const (
	OpConnect TransportOp = "connect"
	OpSend    TransportOp = "send"
	OpReceive TransportOp = "receive"
)

// TransportError reports a failure of the channel itself, as opposed to an
// error result returned by the handler.
type TransportError struct {
	Op  TransportOp
	Err error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("ipc: %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
