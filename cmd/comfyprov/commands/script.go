package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/comfyprov/cmd/comfyprov/handlers"
)

// Script returns the command that prints the setup script without running it.
func Script() *cobra.Command {
	var (
		configPath string
		models     []string
	)

	cmd := &cobra.Command{
		Use:   "script",
		Short: "Print the setup script a provision run would execute",
		Long: `Print the setup script a provision run would execute.

The script goes to stdout and its SHA-256 checksum to stderr, so it can be
reviewed or piped to a shell on an existing machine:

  comfyprov script -m model.safetensors=https://example.com/model.safetensors > setup.sh`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Script(configPath, models)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringArrayVarP(&models, "model", "m", nil, "Model to install as name=url[,type=...][,subfolder=...] (repeatable)")

	return cmd
}
