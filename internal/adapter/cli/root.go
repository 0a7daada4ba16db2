package cli

import (
	"fmt"

	"github.com/kyson/namecall/internal/adapter/logger"
	"github.com/kyson/namecall/internal/core/config"
	"github.com/kyson/namecall/internal/env"
	"github.com/spf13/cobra"
)

var (
	GlobalDebug bool
	LogFile     string

	// appConfig 在 PersistentPreRunE 中加载
	appConfig = config.Default()
)

// 子命令通过 Annotations 声明日志去向
const (
	annotationLogToFile = "namecall.log-to-file" // 默认写 <home>/namecall.log
	annotationNoConsole = "namecall.no-console"  // 不写 stderr (TUI)
)

func NewRootCommand() *cobra.Command {
	var homeDir string
	cmd := &cobra.Command{
		Use:          "namecall",
		Short:        "Bind to a background worker and make one remote call",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := env.Init(homeDir); err != nil {
				return fmt.Errorf("environment setup failed: %w", err)
			}
			paths := env.Get()

			cfg, err := config.Load(paths.ConfigFile)
			if err != nil {
				return err
			}
			appConfig = cfg

			logger.Setup(logConfig(cmd, paths))
			logger.Debug("Environment ready", "home", paths.HomeDir, "command", cmd.Name())
			return nil
		},
	}

	// bind global flags
	cmd.PersistentFlags().BoolVarP(&GlobalDebug, "debug", "d", false, "Enable debug mode")
	cmd.PersistentFlags().StringVar(&homeDir, "home", "", "Custom working directory (default: ~/.namecall)")
	cmd.PersistentFlags().StringVar(&LogFile, "log", "", "Custom log file (default: <home>/namecall.log for serve and ui)")

	// register sub commands
	cmd.AddCommand(
		newVersionCommand(),
		newServeCommand(),
		newStartCommand(),
		newStopCommand(),
		newStatusCommand(),
		newCallCommand(),
		newUICommand(),
		newLogCommand(),
	)

	return cmd
}

func logConfig(cmd *cobra.Command, paths env.Paths) logger.Config {
	cfg := logger.Config{Debug: GlobalDebug, FilePath: LogFile, Console: true}
	if cfg.FilePath == "" && cmd.Annotations[annotationLogToFile] != "" {
		cfg.FilePath = paths.LogFile
	}
	if cmd.Annotations[annotationNoConsole] != "" {
		cfg.Console = false
	}
	return cfg
}

// execute command
func Execute() error {
	return NewRootCommand().Execute()
}
