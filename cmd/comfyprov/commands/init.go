package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/comfyprov/cmd/comfyprov/handlers"
	"github.com/imamik/comfyprov/internal/config"
)

// Init returns the command for interactively creating a configuration file.
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a provisioning configuration",
		Long: `Interactively create a provisioning configuration file.

The wizard asks for the provider and the instance type. Credentials are
never written to the file; set them in the environment or a .env file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", config.DefaultConfigFilename, "Output file path")

	return cmd
}
