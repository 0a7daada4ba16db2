package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/kyson/namecall/internal/adapter/cli"
	"github.com/kyson/namecall/internal/core/daemon"
	"github.com/kyson/namecall/internal/env"
	"github.com/kyson/namecall/internal/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHome string

func TestMain(m *testing.M) {
	// 使用短路径，避免 unix socket 路径过长
	home, err := os.MkdirTemp("", "ncli-")
	if err != nil {
		panic(err)
	}
	testHome = home
	os.Setenv("NAMECALL_HOME", home)
	env.ResetForTest()

	cli.SetCommandSenderFactory(func() ipc.CommandSender {
		return &ipc.FakeSender{Response: ipc.CommandResult{Status: ipc.StatusOK}}
	})

	code := m.Run()

	cli.ResetCommandSenderFactory()
	os.RemoveAll(home)
	os.Exit(code)
}

func useSender(t *testing.T, sender ipc.CommandSender) {
	t.Helper()
	cli.SetCommandSenderFactory(func() ipc.CommandSender { return sender })
	t.Cleanup(func() {
		cli.SetCommandSenderFactory(func() ipc.CommandSender {
			return &ipc.FakeSender{Response: ipc.CommandResult{Status: ipc.StatusOK}}
		})
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := cli.NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

var unavailable = &ipc.TransportError{Op: ipc.OpConnect, Err: os.ErrNotExist}

func TestCLI_VersionCommand(t *testing.T) {
	out, err := execute(t, "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "namecall")
	assert.Contains(t, out, "dev")
}

func TestCLI_StatusCommand(t *testing.T) {
	useSender(t, &ipc.FakeSender{Response: ipc.CommandResult{
		Status: ipc.StatusOK,
		Data: map[string]any{
			"running":   true,
			"pid":       42,
			"worker":    "w-1",
			"delay_ms":  5000,
			"in_flight": 0,
		},
	}})

	out, err := execute(t, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Running:   true")
	assert.Contains(t, out, "PID:       42")
	assert.Contains(t, out, "Delay:     5000ms")
}

func TestCLI_StatusDaemonUnavailable(t *testing.T) {
	useSender(t, &ipc.FakeSender{Err: unavailable})

	out, err := execute(t, "status")

	assert.NoError(t, err)
	assert.Contains(t, out, "not running")
}

func TestCLI_StopCommand(t *testing.T) {
	t.Run("daemon unavailable", func(t *testing.T) {
		useSender(t, &ipc.FakeSender{Err: unavailable})

		out, err := execute(t, "stop")

		assert.NoError(t, err)
		assert.Contains(t, out, "not running")
	})

	t.Run("daemon error", func(t *testing.T) {
		useSender(t, &ipc.FakeSender{Response: ipc.Fail(ipc.ErrCodeInternal, "boom")})

		_, err := execute(t, "stop")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestCLI_CallCommand(t *testing.T) {
	sender := &ipc.FakeSender{Response: ipc.OK(map[string]any{"greeting": "Hello there World"})}
	useSender(t, sender)

	out, err := execute(t, "call", "World", "-q")

	require.NoError(t, err)
	assert.Equal(t, "Hello there World\n", out)
	require.Len(t, sender.Sent, 2)
	assert.Equal(t, "bind", sender.Sent[0].Name)
	assert.Equal(t, "name.do", sender.Sent[1].Name)
	assert.Equal(t, "World", sender.Sent[1].Payload["name"])
}

func TestCLI_CallCommand_RemoteError(t *testing.T) {
	useSender(t, &ipc.FakeSender{Response: ipc.Fail(ipc.ErrCodeInternal, "worker exploded")})

	_, err := execute(t, "call", "World", "-q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker exploded")
}

func TestCLI_CallCommand_TimeoutWhileWaitingForWorker(t *testing.T) {
	useSender(t, &ipc.FakeSender{Err: unavailable})

	start := time.Now()
	_, err := execute(t, "call", "World", "-q", "--timeout", "200ms")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCLI_RequiresName(t *testing.T) {
	_, err := execute(t, "call")
	assert.Error(t, err)
}

// 真实 daemon：call、status、stop 走同一个 socket
func TestCLI_AgainstDaemon(t *testing.T) {
	cli.ResetCommandSenderFactory()
	t.Cleanup(func() {
		cli.SetCommandSenderFactory(func() ipc.CommandSender {
			return &ipc.FakeSender{Response: ipc.CommandResult{Status: ipc.StatusOK}}
		})
	})

	ready := make(chan struct{}, 1)
	d := daemon.NewDaemon(daemon.Options{
		Paths: env.PathsFor(testHome),
		Delay: 50 * time.Millisecond,
		Ready: ready,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- d.Serve(ctx) }()
	select {
	case <-ready:
	case err := <-errCh:
		t.Fatalf("daemon failed: %v", err)
	}

	out, err := execute(t, "call", "Zoë", "-q")
	require.NoError(t, err)
	assert.Equal(t, "Hello there Zoë\n", out)

	out, err = execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Running:   true")
	assert.Contains(t, out, "Delay:     50ms")

	out, err = execute(t, "stop")
	require.NoError(t, err)
	assert.Contains(t, out, "Stopped successfully.")

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not stop")
	}
}
