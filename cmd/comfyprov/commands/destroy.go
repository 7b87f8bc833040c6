package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/comfyprov/cmd/comfyprov/handlers"
)

// Destroy returns the destroy command.
func Destroy() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "destroy <instance-id>",
		Short: "Terminate an instance",
		Long: `Destroy terminates an instance created by 'comfyprov provision'.

Example:
  comfyprov destroy abc123xyz

WARNING: This operation is irreversible. Data on the instance is lost.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Destroy(cmd.Context(), configPath, args[0], verbose)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log diagnostics to stderr")

	return cmd
}
