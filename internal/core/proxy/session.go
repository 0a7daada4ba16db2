package proxy

import (
	"time"

	"github.com/kyson/namecall/internal/ipc"
)

// Binding is the handle to a worker obtained by the handshake.
type Binding struct {
	Address  string
	WorkerID string
	PID      int
	Delay    time.Duration

	sender ipc.CommandSender
}

// session is the live binding plus the one-call-at-a-time flag.
type session struct {
	id       uint64
	binding  Binding
	inFlight bool
}

func asInt(val any) (int, bool) {
	switch v := val.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}
