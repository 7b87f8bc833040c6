// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/mattn/go-isatty"

	"github.com/imamik/comfyprov/internal/config"
	"github.com/imamik/comfyprov/internal/provisioning"
)

// Factory function variables shared by all handlers - can be replaced in tests.
var (
	// loadDotEnv loads secrets from .env into the environment.
	loadDotEnv = config.LoadDotEnv

	// findConfigFile searches for comfyprov.yaml upwards from the working directory.
	findConfigFile = config.FindConfigFile

	// readConfigFile parses a config file without validating it.
	readConfigFile = config.ReadFile

	// getenv reads the process environment.
	getenv = os.Getenv

	// newProvider creates the compute backend.
	newProvider = provisioning.NewProvider

	// loadTimeouts reads timing overrides from the environment.
	loadTimeouts = config.LoadTimeouts

	// isTerminal reports whether stdout is an interactive terminal.
	isTerminal = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// loadConfig reads the configuration at path. An empty path searches for
// comfyprov.yaml; when none is found the configuration comes from the
// environment alone.
func loadConfig(path string) (*config.ProvisioningConfig, error) {
	if err := loadDotEnv(""); err != nil {
		return nil, err
	}

	if path == "" {
		found, err := findConfigFile()
		if err != nil {
			cfg := &config.ProvisioningConfig{}
			config.ApplyEnv(cfg, getenv)
			return cfg, nil
		}
		path = found
	}

	return readConfigFile(path)
}

// addModels appends the models given as --model flags.
func addModels(cfg *config.ProvisioningConfig, flags []string) error {
	for _, f := range flags {
		m, err := config.ParseModelFlag(f)
		if err != nil {
			return err
		}
		cfg.AddModel(m)
	}
	return nil
}

// newLogger returns the diagnostic logger. Diagnostics go to stderr and only
// when verbose is set.
func newLogger(verbose bool) logr.Logger {
	if !verbose {
		return logr.Discard()
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(stderr, args)
	}, funcr.Options{Verbosity: 1})
}

// requireAPIKey fails early for commands that talk to a provider.
func requireAPIKey(cfg *config.ProvisioningConfig) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("api key is required (set %s or %s)", config.EnvRunPodAPIKey, config.EnvHCloudToken)
	}
	return nil
}
