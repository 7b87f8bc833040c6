package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/imamik/comfyprov/internal/config"
	"github.com/imamik/comfyprov/internal/provisioning"
)

// Factory function variables for init - can be replaced in tests.
var (
	// fileExists checks if a file exists.
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// runWizard runs the interactive wizard.
	runWizard = config.RunWizard

	// saveConfig writes the config to a file.
	saveConfig = config.Save
)

// Init runs the configuration wizard and writes the result to outputPath.
func Init(ctx context.Context, outputPath string) error {
	if fileExists(outputPath) {
		fmt.Fprintf(stdout, "Warning: %s already exists and will be overwritten.\n\n", outputPath)
	}

	result, err := runWizard(ctx)
	if err != nil {
		return err
	}

	cfg := result.ToConfig()
	if err := saveConfig(cfg, outputPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(outputPath, cfg)
	return nil
}

// printInitSuccess prints the summary and next steps.
func printInitSuccess(outputPath string, cfg *config.ProvisioningConfig) {
	keyVar := config.EnvRunPodAPIKey
	if cfg.Provider == config.ProviderHCloud {
		keyVar = config.EnvHCloudToken
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Configuration saved!")
	fmt.Fprintf(stdout, "  File:     %s\n", outputPath)
	fmt.Fprintf(stdout, "  Provider: %s\n", provisioning.ProviderDisplayName(cfg.Provider))
	fmt.Fprintf(stdout, "  Type:     %s\n", cfg.GPUTypeID)
	if cfg.Location != "" {
		fmt.Fprintf(stdout, "  Location: %s\n", cfg.Location)
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Next Steps")
	fmt.Fprintln(stdout, "----------")
	fmt.Fprintf(stdout, "  1. Put your credentials in %s or the environment:\n", config.DefaultDotEnvFilename)
	fmt.Fprintf(stdout, "     %s=<key>\n", keyVar)
	fmt.Fprintf(stdout, "     %s=<token>   (optional, for gated Hugging Face models)\n", config.EnvHFToken)
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  2. Add models under `models:` in %s\n", outputPath)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "  3. Provision:")
	fmt.Fprintln(stdout, "     comfyprov provision")
	fmt.Fprintln(stdout)
}
