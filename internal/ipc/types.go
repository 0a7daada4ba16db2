package ipc

import (
	"context"

	"github.com/google/uuid"
)

// CommandMessage represents a single request dispatched to the daemon.
type CommandMessage struct {
	ID      string         `json:"id,omitempty"`
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload,omitempty"`
}

// CommandResult is returned by the daemon to the client that issued the CommandMessage.
type CommandResult struct {
	ID     string         `json:"id,omitempty"`
	Status string         `json:"status"` // "ok" or "error"
	Code   int            `json:"code,omitempty"`
	Error  string         `json:"error,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Error codes
const (
	ErrCodeInternal       = -32603
	ErrCodeInvalidParams  = -32602
	ErrCodeMethodNotFound = -32601
	ErrCodeShuttingDown   = -32000
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// NewCommand builds a CommandMessage with a fresh request id.
func NewCommand(name string, payload map[string]any) CommandMessage {
	return CommandMessage{
		ID:      uuid.NewString(),
		Name:    name,
		Payload: payload,
	}
}

// OK builds a successful result.
func OK(data map[string]any) CommandResult {
	return CommandResult{Status: StatusOK, Data: data}
}

// Fail builds an error result.
func Fail(code int, msg string) CommandResult {
	return CommandResult{Status: StatusError, Code: code, Error: msg}
}

// CommandHandler processes CommandMessages in the daemon and returns a result.
type CommandHandler interface {
	Handle(ctx context.Context, cmd CommandMessage) CommandResult
}

// HandlerFunc is a helper wrapper that lets a function satisfy CommandHandler.
type HandlerFunc func(ctx context.Context, cmd CommandMessage) CommandResult

// Handle calls the wrapped function.
func (f HandlerFunc) Handle(ctx context.Context, cmd CommandMessage) CommandResult {
	if f == nil {
		return Fail(ErrCodeInternal, "handler func nil")
	}
	return f(ctx, cmd)
}
