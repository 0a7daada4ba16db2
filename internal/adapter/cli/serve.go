package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kyson/namecall/internal/adapter/logger"
	"github.com/kyson/namecall/internal/core/daemon"
	"github.com/kyson/namecall/internal/env"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var (
		delay       time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:         "serve",
		Short:       "Run the worker daemon in the foreground",
		Annotations: map[string]string{annotationLogToFile: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			// flag 优先于 config.yaml
			if !cmd.Flags().Changed("delay") {
				delay = appConfig.Worker.Delay
			}
			if !cmd.Flags().Changed("metrics-addr") {
				metricsAddr = appConfig.Metrics.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			paths := env.Get()
			d := daemon.NewDaemon(daemon.Options{
				Paths:       paths,
				Delay:       delay,
				MetricsAddr: metricsAddr,
			})

			logger.Info("Starting daemon", "socket", paths.SocketFile, "delay", delay, "pid", os.Getpid())
			if err := d.Serve(ctx); err != nil {
				logger.Error("Daemon exited with error", "error", err)
				return err
			}
			logger.Info("Daemon stopped")
			return logger.Close()
		},
	}

	cmd.Flags().DurationVar(&delay, "delay", 0, "Simulated work time per call (default from config, 5s)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address")

	return cmd
}
