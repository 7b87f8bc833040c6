package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/comfyprov/cmd/comfyprov/handlers"
)

// Provision returns the command that creates an instance and installs ComfyUI.
//
// Flags:
//
//	--config, -c: Path to the configuration file (default: search for comfyprov.yaml)
//	--model, -m: Additional model, repeatable
//	--gpu: Override the GPU type
//	--yes, -y: Skip the confirmation prompt
//	--no-tui: Print plain lines even on a terminal
func Provision() *cobra.Command {
	var opts handlers.ProvisionOptions

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create an instance and install ComfyUI with models",
		Long: `Provision leases an instance, installs ComfyUI and ComfyUI-Manager on it,
downloads every configured model and prints the public URL.

Models come from the configuration file and from --model flags, in that
order. The flag syntax is:

  name=url[,type=checkpoint|lora|vae|embedding|controlnet][,subfolder=dir]

Example:
  comfyprov provision -m sd_xl_base_1.0.safetensors=https://huggingface.co/.../sd_xl_base_1.0.safetensors

The instance keeps running (and billing) after this command exits.
Remove it with 'comfyprov destroy <instance-id>'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Provision(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: search for comfyprov.yaml)")
	cmd.Flags().StringArrayVarP(&opts.Models, "model", "m", nil, "Model to install as name=url[,type=...][,subfolder=...] (repeatable)")
	cmd.Flags().StringVar(&opts.GPUType, "gpu", "", "GPU type ID (overrides the configuration)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&opts.NoTUI, "no-tui", false, "Print plain output even on a terminal")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Log diagnostics to stderr (plain output only)")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write run metrics in Prometheus textfile format")

	return cmd
}
