package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/comfyprov/internal/platform/compute"
	"github.com/imamik/comfyprov/internal/provisioning"
)

// GPUs lists the instance types the configured provider offers.
func GPUs(ctx context.Context, configPath string, verbose bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.ApplyDefaults()
	if err := requireAPIKey(cfg); err != nil {
		return err
	}

	log := newLogger(verbose)
	p, err := newProvider(cfg, loadTimeouts(), log)
	if err != nil {
		return err
	}

	display := provisioning.ProviderDisplayName(p.Name())
	offerings, err := compute.ListOfferings(ctx, p)
	if err != nil {
		log.Error(err, "failed to list GPU offerings", "provider", p.Name())
		fmt.Fprintf(stderr, "Warning: failed to list offerings from %s: %v\n", display, err)
	}
	if len(offerings) == 0 {
		fmt.Fprintf(stdout, "No offerings returned by %s.\n", display)
		return nil
	}

	fmt.Fprint(stdout, renderOfferings(display, cfg.GPUTypeID, offerings))
	return nil
}
