package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/comfyprov/cmd/comfyprov/handlers"
)

// GPUs returns the command that lists the provider's instance types.
func GPUs() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "gpus",
		Short: "List available GPU types and prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.GPUs(cmd.Context(), configPath, verbose)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log diagnostics to stderr")

	return cmd
}
