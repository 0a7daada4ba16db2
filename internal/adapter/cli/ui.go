package cli

import (
	"github.com/kyson/namecall/internal/adapter/tui"
	"github.com/kyson/namecall/internal/env"
	"github.com/spf13/cobra"
)

func newUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Interactive front-end",
		Annotations: map[string]string{
			annotationLogToFile: "true",
			annotationNoConsole: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(cmd.Context(), env.Get().SocketFile, proxyOptions()...)
		},
	}
}
