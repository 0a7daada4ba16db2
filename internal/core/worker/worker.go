// Package worker is the remote side of the name call: it accepts a name,
// simulates work for a fixed delay and answers with a greeting.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kyson/namecall/internal/adapter/logger"
	"github.com/kyson/namecall/internal/core/config"
	"github.com/kyson/namecall/internal/ipc"
)

// GreetingPrefix is prepended to every name.
const GreetingPrefix = "Hello there "

// Command names understood by the worker.
const (
	CmdBind   = "bind"
	CmdDoName = "name.do"
	CmdHealth = "health"
)

// Worker is stateless across calls; every call runs on the caller's goroutine.
type Worker struct {
	id      string
	delay   time.Duration
	metrics *Metrics
}

type Option func(*Worker)

// WithDelay overrides the simulated work time.
func WithDelay(d time.Duration) Option {
	return func(w *Worker) { w.delay = d }
}

// WithMetrics attaches call metrics.
func WithMetrics(m *Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// New builds a worker with the default 5s delay.
func New(opts ...Option) *Worker {
	w := &Worker{
		id:    uuid.NewString(),
		delay: config.DefaultDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.metrics == nil {
		w.metrics = NewMetrics(nil)
	}
	return w
}

// ID identifies this worker instance to bound clients.
func (w *Worker) ID() string { return w.id }

// Delay returns the simulated work time.
func (w *Worker) Delay() time.Duration { return w.delay }

// DoName returns GreetingPrefix+name once the delay has elapsed. It fails
// with ctx's error if ctx ends first.
func (w *Worker) DoName(ctx context.Context, name string) (string, error) {
	logger.Debug("Got name", "name", name, "worker", w.id)
	start := time.Now()
	w.metrics.InFlight.Inc()
	defer w.metrics.InFlight.Dec()

	timer := time.NewTimer(w.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		w.metrics.Calls.WithLabelValues("aborted").Inc()
		return "", ctx.Err()
	case <-timer.C:
	}

	w.metrics.Duration.Observe(time.Since(start).Seconds())
	w.metrics.Calls.WithLabelValues("ok").Inc()
	return GreetingPrefix + name, nil
}

// Handle routes the IPC commands served by the worker.
func (w *Worker) Handle(ctx context.Context, cmd ipc.CommandMessage) ipc.CommandResult {
	switch cmd.Name {
	case CmdBind:
		logger.Info("Client bound", "worker", w.id, "request", cmd.ID)
		return ipc.OK(map[string]any{
			"worker":   w.id,
			"pid":      os.Getpid(),
			"delay_ms": w.delay.Milliseconds(),
		})
	case CmdDoName:
		return w.handleDoName(ctx, cmd.Payload)
	case CmdHealth:
		return ipc.OK(map[string]any{"worker": w.id})
	default:
		return ipc.Fail(ipc.ErrCodeMethodNotFound, fmt.Sprintf("unknown command: %s", cmd.Name))
	}
}

func (w *Worker) handleDoName(ctx context.Context, payload map[string]any) ipc.CommandResult {
	name, ok := payload["name"].(string)
	if !ok {
		w.metrics.Calls.WithLabelValues("invalid").Inc()
		return ipc.Fail(ipc.ErrCodeInvalidParams, "missing name")
	}
	greeting, err := w.DoName(ctx, name)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ipc.Fail(ipc.ErrCodeShuttingDown, err.Error())
		}
		return ipc.Fail(ipc.ErrCodeInternal, err.Error())
	}
	return ipc.OK(map[string]any{"greeting": greeting})
}
