package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kyson/namecall/internal/adapter/logger"
	"github.com/kyson/namecall/internal/core/loop"
	"github.com/kyson/namecall/internal/core/proxy"
	"github.com/kyson/namecall/internal/env"
	"github.com/kyson/namecall/internal/ipc"
	"github.com/spf13/cobra"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func newCallCommand() *cobra.Command {
	var (
		timeout time.Duration
		quiet   bool
	)
	cmd := &cobra.Command{
		Use:   "call NAME",
		Short: "Connect to the worker and ask it for a greeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			busyOut := cmd.ErrOrStderr()
			if quiet {
				busyOut = io.Discard
			}
			greeting, err := runCall(ctx, args[0], busyOut)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), greeting)
			return nil
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Give up after this long (connect included)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the busy indicator")

	return cmd
}

func proxyOptions() []proxy.Option {
	opts := []proxy.Option{
		proxy.WithSenderFactory(func(string) ipc.CommandSender { return commandSenderFactory() }),
	}
	if c := appConfig.Client; c.ConnectRetry > 0 {
		opts = append(opts, proxy.WithConnectRetry(c.ConnectRetry))
	}
	if c := appConfig.Client; c.CallTimeout > 0 {
		opts = append(opts, proxy.WithCallTimeout(c.CallTimeout))
	}
	if c := appConfig.Client; c.DialTimeout > 0 {
		opts = append(opts, proxy.WithDialTimeout(c.DialTimeout))
	}
	return opts
}

// runCall drives one connect + call on a primary loop owned by this goroutine.
// The busy indicator is redrawn from the loop while the call is outstanding.
func runCall(ctx context.Context, name string, busyOut io.Writer) (string, error) {
	primary := loop.New()
	px := proxy.New(env.Get().SocketFile, primary, proxyOptions()...)
	defer px.Disconnect()

	var (
		greeting string
		result   error
		busy     bool
		frame    int
	)

	stopTicker := make(chan struct{})
	defer close(stopTicker)
	spin := func() {
		if !busy {
			return
		}
		fmt.Fprintf(busyOut, "\r%s waiting for worker...", spinnerFrames[frame%len(spinnerFrames)])
		frame++
	}
	go func() {
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-stopTicker:
				return
			case <-t.C:
				if !primary.Post(spin) {
					return
				}
			}
		}
	}()

	deliver := func(g string, err error) {
		if busy {
			fmt.Fprint(busyOut, "\r\033[K")
		}
		busy = false
		greeting, result = g, err
		primary.Close()
	}

	onConnected := func(err error) {
		if err != nil {
			result = fmt.Errorf("connect failed: %w", err)
			primary.Close()
			return
		}
		if b, ok := px.Binding(); ok {
			logger.Debug("Bound to worker", "worker", b.WorkerID, "pid", b.PID, "delay", b.Delay)
		}
		busy = true
		if err := px.CallRemote(name, deliver); err != nil {
			deliver("", err)
		}
	}

	if err := px.Connect(ctx, onConnected); err != nil {
		return "", err
	}
	if err := primary.Run(ctx); err != nil && result == nil {
		// ctx 在握手或调用过程中结束
		if busy {
			fmt.Fprint(busyOut, "\r\033[K")
		}
		return "", fmt.Errorf("call %q: %w", name, err)
	}
	if result != nil {
		return "", result
	}
	return greeting, nil
}
