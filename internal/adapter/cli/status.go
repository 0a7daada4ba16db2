package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			resp, err := dispatchToDaemon(cmd.Context(), "status", nil)
			if errors.Is(err, ErrDaemonUnavailable) {
				fmt.Fprintln(out, "namecall daemon is not running.")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Running:   %v\n", resp.Data["running"])
			fmt.Fprintf(out, "PID:       %v\n", resp.Data["pid"])
			fmt.Fprintf(out, "Worker:    %v\n", resp.Data["worker"])
			fmt.Fprintf(out, "Delay:     %vms\n", resp.Data["delay_ms"])
			fmt.Fprintf(out, "In flight: %v\n", resp.Data["in_flight"])
			fmt.Fprintf(out, "Uptime:    %v\n", resp.Data["uptime"])
			fmt.Fprintf(out, "Socket:    %v\n", resp.Data["socket"])
			if metrics, _ := resp.Data["metrics"].(string); metrics != "" {
				fmt.Fprintf(out, "Metrics:   %s\n", metrics)
			}
			return nil
		},
	}
}
