package handlers

import (
	"context"
	"fmt"
)

// Destroy terminates an instance created by an earlier run.
func Destroy(ctx context.Context, configPath, instanceID string, verbose bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.ApplyDefaults()
	if err := requireAPIKey(cfg); err != nil {
		return err
	}

	p, err := newProvider(cfg, loadTimeouts(), newLogger(verbose))
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Terminating instance %s...\n", instanceID)
	if err := p.TerminateInstance(ctx, instanceID); err != nil {
		return fmt.Errorf("failed to terminate instance %s: %w", instanceID, err)
	}
	fmt.Fprintf(stdout, "Instance %s terminated.\n", instanceID)
	return nil
}
