package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kyson/namecall/internal/env"
	"github.com/nxadm/tail"
	"github.com/spf13/cobra"
)

func newLogCommand() *cobra.Command {
	var fromStart bool
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Stream daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			logPath := LogFile
			if logPath == "" {
				logPath = env.Get().LogFile
			}

			location := &tail.SeekInfo{Offset: 0, Whence: 2} // 从文件末尾开始读
			if fromStart {
				location = nil
			}
			t, err := tail.TailFile(logPath, tail.Config{
				Follow:    true,
				ReOpen:    true, // 支持日志轮转后继续读
				MustExist: false,
				Location:  location,
				Logger:    tail.DiscardingLogger,
			})
			if err != nil {
				return fmt.Errorf("failed to tail %s: %w", logPath, err)
			}
			defer t.Cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "📋 Streaming daemon log: %s\n", logPath)
			for {
				select {
				case <-ctx.Done():
					return t.Stop()
				case line, ok := <-t.Lines:
					if !ok {
						return t.Err()
					}
					fmt.Fprintln(cmd.OutOrStdout(), line.Text)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&fromStart, "all", false, "Print the whole file before following")

	return cmd
}
