package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
)

// WizardResult holds the operator's choices from the init wizard.
type WizardResult struct {
	Provider   string
	GPUTypeID  string
	CloudType  string
	VolumeSize string
	Location   string
}

// RunWizard asks for the handful of settings that differ between operators
// and returns them. Credentials are never asked for; they come from the
// environment or a .env file.
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := &WizardResult{
		Provider:   DefaultProvider,
		CloudType:  DefaultCloudType,
		VolumeSize: strconv.Itoa(DefaultVolumeSizeGB),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Provider").
				Description("Where the instance is leased").
				Options(
					huh.NewOption("RunPod (GPU pods)", ProviderRunPod),
					huh.NewOption("Hetzner Cloud (CPU servers, for testing)", ProviderHCloud),
				).
				Value(&result.Provider),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("GPU type").
				Description("RunPod GPU type ID, see `comfyprov gpus`").
				Placeholder(DefaultGPUTypeID).
				Value(&result.GPUTypeID),
			huh.NewSelect[string]().
				Title("Cloud type").
				Options(
					huh.NewOption("Community (cheaper)", CloudTypeCommunity),
					huh.NewOption("Secure", CloudTypeSecure),
					huh.NewOption("Any", CloudTypeAll),
				).
				Value(&result.CloudType),
			huh.NewInput().
				Title("Volume size (GB)").
				Value(&result.VolumeSize).
				Validate(validateVolumeSize),
		).WithHideFunc(func() bool { return result.Provider != ProviderRunPod }),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Server type").
				Options(
					huh.NewOption("CPX41 - 8 vCPU, 16GB RAM", "cpx41"),
					huh.NewOption("CPX51 - 16 vCPU, 32GB RAM", "cpx51"),
					huh.NewOption("CCX33 - 8 dedicated vCPU, 32GB RAM", "ccx33"),
				).
				Value(&result.GPUTypeID),
			huh.NewSelect[string]().
				Title("Location").
				Options(
					huh.NewOption("Falkenstein, Germany (fsn1)", "fsn1"),
					huh.NewOption("Nuremberg, Germany (nbg1)", "nbg1"),
					huh.NewOption("Helsinki, Finland (hel1)", "hel1"),
				).
				Value(&result.Location),
		).WithHideFunc(func() bool { return result.Provider != ProviderHCloud }),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}

	return result, nil
}

// ToConfig converts the wizard result to a configuration with defaults
// applied.
func (r *WizardResult) ToConfig() *ProvisioningConfig {
	cfg := &ProvisioningConfig{
		Provider:  r.Provider,
		GPUTypeID: strings.TrimSpace(r.GPUTypeID),
	}
	if r.Provider == ProviderHCloud {
		cfg.Location = r.Location
	} else {
		cfg.CloudType = r.CloudType
		cfg.VolumeSizeGB, _ = strconv.Atoi(strings.TrimSpace(r.VolumeSize))
	}
	cfg.ApplyDefaults()
	return cfg
}

func validateVolumeSize(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("volume size must be a number")
	}
	if n < 10 || n > 2000 {
		return fmt.Errorf("volume size must be between 10 and 2000 GB")
	}
	return nil
}
