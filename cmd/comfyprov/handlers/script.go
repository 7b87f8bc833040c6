package handlers

import (
	"fmt"

	"github.com/imamik/comfyprov/internal/script"
)

// Script prints the setup script a provisioning run would execute, so it can
// be reviewed or run by hand. The checksum goes to stderr.
func Script(configPath string, models []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := addModels(cfg, models); err != nil {
		return err
	}
	cfg.ApplyDefaults()

	for i, m := range cfg.Models {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("models[%d]: %w", i, err)
		}
	}

	s := script.Synthesize(cfg)
	fmt.Fprintln(stdout, s)
	fmt.Fprintf(stderr, "sha256: %s\n", script.Checksum(s))
	return nil
}
