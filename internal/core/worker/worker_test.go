package worker

import (
	"context"
	"testing"
	"time"

	"github.com/kyson/namecall/internal/ipc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultDelay(t *testing.T) {
	w := New()
	assert.Equal(t, 5000*time.Millisecond, w.Delay())
	assert.NotEmpty(t, w.ID())
}

func TestDoName_Greeting(t *testing.T) {
	w := New(WithDelay(0))
	for _, name := range []string{"World", "", "Zoë", "世界", "🙂 emoji", "  spaced  "} {
		got, err := w.DoName(context.Background(), name)
		require.NoError(t, err)
		assert.Equal(t, "Hello there "+name, got)
	}
}

func TestDoName_WaitsForDelay(t *testing.T) {
	const delay = 60 * time.Millisecond
	w := New(WithDelay(delay))

	start := time.Now()
	got, err := w.DoName(context.Background(), "World")
	require.NoError(t, err)
	assert.Equal(t, "Hello there World", got)
	assert.GreaterOrEqual(t, time.Since(start), delay)
}

func TestDoName_ContextCancelled(t *testing.T) {
	w := New(WithDelay(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := w.DoName(ctx, "World")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandle(t *testing.T) {
	w := New(WithDelay(0))
	ctx := context.Background()

	tests := []struct {
		name     string
		cmd      ipc.CommandMessage
		status   string
		code     int
		greeting string
	}{
		{
			name:     "do name",
			cmd:      ipc.CommandMessage{Name: CmdDoName, Payload: map[string]any{"name": "World"}},
			status:   ipc.StatusOK,
			greeting: "Hello there World",
		},
		{
			name:     "empty name is valid",
			cmd:      ipc.CommandMessage{Name: CmdDoName, Payload: map[string]any{"name": ""}},
			status:   ipc.StatusOK,
			greeting: "Hello there ",
		},
		{
			name:   "missing name",
			cmd:    ipc.CommandMessage{Name: CmdDoName},
			status: ipc.StatusError,
			code:   ipc.ErrCodeInvalidParams,
		},
		{
			name:   "non-string name",
			cmd:    ipc.CommandMessage{Name: CmdDoName, Payload: map[string]any{"name": 42}},
			status: ipc.StatusError,
			code:   ipc.ErrCodeInvalidParams,
		},
		{
			name:   "unknown",
			cmd:    ipc.CommandMessage{Name: "name.undo"},
			status: ipc.StatusError,
			code:   ipc.ErrCodeMethodNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := w.Handle(ctx, tt.cmd)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.code, resp.Code)
			if tt.greeting != "" {
				assert.Equal(t, tt.greeting, resp.Data["greeting"])
			}
		})
	}
}

func TestHandle_Bind(t *testing.T) {
	w := New(WithDelay(1500 * time.Millisecond))
	resp := w.Handle(context.Background(), ipc.CommandMessage{Name: CmdBind})
	require.Equal(t, ipc.StatusOK, resp.Status)
	assert.Equal(t, w.ID(), resp.Data["worker"])
	assert.Equal(t, int64(1500), resp.Data["delay_ms"])
	assert.NotZero(t, resp.Data["pid"])
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	w := New(WithDelay(0), WithMetrics(m))

	_, err := w.DoName(context.Background(), "a")
	require.NoError(t, err)
	_, err = w.DoName(context.Background(), "b")
	require.NoError(t, err)
	w.Handle(context.Background(), ipc.CommandMessage{Name: CmdDoName})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Calls.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues("invalid")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}
