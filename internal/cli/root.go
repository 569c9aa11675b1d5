// Package cli wires the command-line interface: the long-running farming
// loop and interactive session creation.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// Execute runs the root command with the given context. The context carries
// signal cancellation; every account loop stops when it is done.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:           "blum-bot",
		Short:         "Automated farming for the Blum Telegram mini-app",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var configPath string
	root.PersistentFlags().StringVar(&configPath, "config", "config", "config directory")

	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newSessionCmd(&configPath))

	return root.ExecuteContext(ctx)
}
