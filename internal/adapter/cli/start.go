package cli

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/kyson/namecall/internal/env"
	"github.com/spf13/cobra"
)

func newStartCommand() *cobra.Command {
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the worker daemon in background",
		RunE: func(cmd *cobra.Command, args []string) error {
			if resp, err := dispatchToDaemon(cmd.Context(), "status", nil); err == nil {
				if running, _ := resp.Data["running"].(bool); running {
					return fmt.Errorf("namecall daemon is already running")
				}
			}

			exePath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("failed to locate executable: %w", err)
			}

			paths := env.Get()
			logFile := LogFile
			if logFile == "" {
				logFile = paths.LogFile
			}

			// 传递 --home 给子进程，确保子进程使用相同的目录
			runArgs := []string{"--home", paths.HomeDir, "--log", logFile}
			if GlobalDebug {
				runArgs = append(runArgs, "--debug")
			}
			runArgs = append(runArgs, "serve")
			if delay > 0 {
				runArgs = append(runArgs, "--delay", delay.String())
			}

			command := exec.Command(exePath, runArgs...)

			// 子进程的 stdout/stderr 指向 /dev/null，日志只写文件
			devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
			if err == nil {
				command.Stdout = devNull
				command.Stderr = devNull
				defer devNull.Close()
			}
			command.Stdin = nil

			if err := command.Start(); err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}
			// 不等待子进程，避免僵尸进程需要 Release
			defer command.Process.Release()

			// 等待一小会儿，确保 daemon 可用
			timeout := time.After(2 * time.Second)
			ticker := time.NewTicker(150 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-timeout:
					return fmt.Errorf("daemon failed to start; check logs (log: %s)", logFile)
				case <-ticker.C:
					resp, err := dispatchToDaemon(cmd.Context(), "status", nil)
					if err != nil {
						continue
					}
					if running, _ := resp.Data["running"].(bool); running {
						fmt.Fprintf(cmd.OutOrStdout(), "namecall daemon started [PID: %d]\n", command.Process.Pid)
						fmt.Fprintf(cmd.OutOrStdout(), "Log file: %s\n", logFile)
						return nil
					}
				}
			}
		},
	}

	cmd.Flags().DurationVar(&delay, "delay", 0, "Simulated work time per call")

	return cmd
}
