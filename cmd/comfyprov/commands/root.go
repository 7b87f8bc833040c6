// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the comfyprov CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "comfyprov",
		Short:         "Provision ComfyUI on rented GPU instances",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Core commands
	cmd.AddCommand(Init())
	cmd.AddCommand(Provision())
	cmd.AddCommand(Destroy())

	// Utility commands
	cmd.AddCommand(GPUs())
	cmd.AddCommand(Script())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
