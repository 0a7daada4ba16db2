package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kyson/namecall/internal/env"
	"github.com/kyson/namecall/internal/ipc"
)

var ErrDaemonUnavailable = errors.New("daemon unavailable")

var commandSenderFactory = defaultCommandSenderFactory

func defaultCommandSenderFactory() ipc.CommandSender {
	sender := ipc.NewUnixSender(env.Get().SocketFile)
	if appConfig.Client.DialTimeout > 0 {
		sender.DialTimeout = appConfig.Client.DialTimeout
	}
	return sender
}

// SetCommandSenderFactory lets tests replace the command sender.
func SetCommandSenderFactory(factory func() ipc.CommandSender) {
	if factory == nil {
		commandSenderFactory = defaultCommandSenderFactory
		return
	}
	commandSenderFactory = factory
}

// ResetCommandSenderFactory restores the default sender.
func ResetCommandSenderFactory() {
	commandSenderFactory = defaultCommandSenderFactory
}

// dispatchToDaemon sends a command message to the daemon, returning ErrDaemonUnavailable when the socket is unreachable.
func dispatchToDaemon(ctx context.Context, name string, payload map[string]any) (ipc.CommandResult, error) {
	sender := commandSenderFactory()
	resp, err := sender.Send(ctx, ipc.NewCommand(name, payload))
	if err != nil {
		if isDaemonUnavailable(err) {
			return ipc.CommandResult{}, ErrDaemonUnavailable
		}
		return ipc.CommandResult{}, fmt.Errorf("ipc send failed: %w", err)
	}
	if resp.Status == "" {
		resp.Status = ipc.StatusOK
	}
	if resp.Status != ipc.StatusOK {
		if resp.Error != "" {
			return resp, fmt.Errorf("daemon error: %s", resp.Error)
		}
		return resp, fmt.Errorf("daemon responded with status %s", resp.Status)
	}
	return resp, nil
}

func isDaemonUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	var te *ipc.TransportError
	return errors.As(err, &te) && te.Op == ipc.OpConnect
}
