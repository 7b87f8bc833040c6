package handlers

import (
	"context"
	"errors"
	"fmt"
	"iter"
	stdlog "log"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/comfyprov/internal/config"
	"github.com/imamik/comfyprov/internal/provisioning"
	"github.com/imamik/comfyprov/internal/ui/tui"
)

// ErrNotConfirmed is returned when a billable run is started without a
// terminal to confirm on and without --yes.
var ErrNotConfirmed = errors.New("refusing to create a billable instance without confirmation (pass --yes)")

// ProvisionOptions carries the provision command flags.
type ProvisionOptions struct {
	ConfigPath  string
	Models      []string
	GPUType     string
	Yes         bool
	NoTUI       bool
	Verbose     bool
	MetricsFile string
}

// LineSource produces the status lines of one provisioning run.
type LineSource interface {
	Run(ctx context.Context, cfg *config.ProvisioningConfig) iter.Seq[string]
}

// Factory function variables for provision - can be replaced in tests.
var (
	// newOrchestrator creates the provisioning orchestrator.
	newOrchestrator = func(opts ...provisioning.Option) LineSource {
		return provisioning.New(opts...)
	}

	// confirmProvision asks the operator before anything billable happens.
	confirmProvision = confirmWithForm

	// runTUI renders a run interactively.
	runTUI = tui.RunProvisionTUI

	// writeMetrics writes the registry in the node_exporter textfile format.
	writeMetrics = prometheus.WriteToTextfile
)

// Provision leases an instance, installs ComfyUI and the requested models on
// it, and reports the public URL.
//
// Lines are rendered by the TUI when stdout is a terminal, and printed one per
// line otherwise. A run that ends with an error line returns that error.
func Provision(ctx context.Context, opts ProvisionOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.GPUType != "" {
		cfg.GPUTypeID = opts.GPUType
	}
	if err := addModels(cfg, opts.Models); err != nil {
		return err
	}

	// The orchestrator validates again; checking here avoids a pointless prompt.
	effective := cfg.Clone()
	effective.ApplyDefaults()
	if err := effective.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	interactive := isTerminal()
	if !opts.Yes {
		if !interactive {
			return ErrNotConfirmed
		}
		ok, err := confirmProvision(ctx, effective)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stdout, "Aborted.")
			return nil
		}
	}

	useTUI := interactive && !opts.NoTUI
	log := newLogger(opts.Verbose && !useTUI)

	var observer provisioning.Observer = provisioning.NopObserver{}
	if opts.Verbose && !useTUI {
		observer = provisioning.NewConsoleObserver(stdlog.New(stderr, "", stdlog.LstdFlags))
	}

	reg := prometheus.NewRegistry()
	orch := newOrchestrator(
		provisioning.WithObserver(observer),
		provisioning.WithMetrics(provisioning.NewMetrics(reg)),
		provisioning.WithLogger(log),
		provisioning.WithTimeouts(loadTimeouts()),
	)

	var runErr error
	if useTUI {
		runErr = provisionTUI(ctx, orch, cfg, provisioning.ProviderDisplayName(effective.Provider))
	} else {
		runErr = provisionPlain(ctx, orch, cfg)
	}

	if opts.MetricsFile != "" {
		if err := writeMetrics(opts.MetricsFile, reg); err != nil {
			err = fmt.Errorf("failed to write metrics: %w", err)
			if runErr != nil {
				return errors.Join(runErr, err)
			}
			return err
		}
	}

	return runErr
}

// provisionPlain prints every line and turns a trailing error line into an error.
func provisionPlain(ctx context.Context, orch LineSource, cfg *config.ProvisioningConfig) error {
	var failure string
	for line := range orch.Run(ctx, cfg) {
		fmt.Fprintln(stdout, line)
		if msg, ok := strings.CutPrefix(line, provisioning.ErrorPrefix); ok {
			failure = msg
		}
	}
	if failure != "" {
		return errors.New(failure)
	}
	return nil
}

func provisionTUI(ctx context.Context, orch LineSource, cfg *config.ProvisioningConfig, display string) error {
	start := func(ctx context.Context) iter.Seq[string] {
		return orch.Run(ctx, cfg)
	}

	res, err := runTUI(ctx, "ComfyUI on "+display, start)
	if err != nil {
		if res.InstanceID != "" {
			fmt.Fprintf(stderr, "Instance %s may still be running. Remove it with:\n  comfyprov destroy %s\n", res.InstanceID, res.InstanceID)
		}
		return err
	}

	if res.URL != "" {
		fmt.Fprintf(stdout, "ComfyUI is ready at %s\n", res.URL)
	} else {
		fmt.Fprintf(stdout, "Instance %s is ready. Check the provider dashboard for its URL.\n", res.InstanceID)
	}
	return nil
}

// confirmWithForm shows a yes/no prompt summarizing the instance about to be created.
func confirmWithForm(ctx context.Context, cfg *config.ProvisioningConfig) (bool, error) {
	confirmed := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Create a %s instance (%s) with %d model(s)?",
					provisioning.ProviderDisplayName(cfg.Provider), cfg.GPUTypeID, len(cfg.Models))).
				Description("The instance is billed until you destroy it.").
				Affirmative("Create").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation failed: %w", err)
	}
	return confirmed, nil
}
