package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/kyson/namecall/internal/env"
	"github.com/spf13/cobra"
)

func newStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if _, err := dispatchToDaemon(cmd.Context(), "stop", nil); err != nil {
				if errors.Is(err, ErrDaemonUnavailable) {
					fmt.Fprintln(out, "namecall daemon is not running.")
					return nil
				}
				return err
			}

			fmt.Fprintln(out, "Stopping namecall daemon...")
			// 轮询锁文件，确认进程真的退出了
			lockFile := env.Get().LockFile
			for i := 0; i < 50; i++ {
				if env.CheckLock(lockFile) != nil {
					fmt.Fprintln(out, "Stopped successfully.")
					return nil
				}
				time.Sleep(100 * time.Millisecond)
			}
			return fmt.Errorf("stop command sent, but the daemon still holds %s", lockFile)
		},
	}
}
