package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidCloudTypes contains the cloud tiers RunPod accepts.
var ValidCloudTypes = map[string]bool{
	CloudTypeCommunity: true,
	CloudTypeSecure:    true,
	CloudTypeAll:       true,
}

// Validate checks a single model entry.
func (m ModelSpec) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("model name is required")
	}
	if strings.TrimSpace(m.URL) == "" {
		return fmt.Errorf("model %q: url is required", m.Name)
	}
	if strings.Contains(m.Name, "/") {
		return fmt.Errorf("model %q: name must be a file name, not a path", m.Name)
	}
	return nil
}

// Validate checks the configuration for common errors and returns a detailed
// error if validation fails. It never touches the network.
func (c *ProvisioningConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required (set %s or %s)", EnvRunPodAPIKey, EnvHCloudToken)
	}

	switch c.Provider {
	case ProviderRunPod:
		if c.CloudType != "" && !ValidCloudTypes[strings.ToUpper(c.CloudType)] {
			return fmt.Errorf("invalid cloud_type %q: must be one of COMMUNITY, SECURE, ALL", c.CloudType)
		}
	case ProviderHCloud:
	default:
		return fmt.Errorf("invalid provider %q: must be %q or %q", c.Provider, ProviderRunPod, ProviderHCloud)
	}

	if c.GPUTypeID == "" {
		return fmt.Errorf("gpu_type_id is required")
	}
	if c.VolumeSizeGB < 0 {
		return fmt.Errorf("volume_size_gb must not be negative, got %d", c.VolumeSizeGB)
	}
	if c.ContainerDiskSizeGB < 0 {
		return fmt.Errorf("container_disk_size_gb must not be negative, got %d", c.ContainerDiskSizeGB)
	}

	if err := validateRepoURL("comfyui_repo", c.ComfyUIRepo); err != nil {
		return err
	}
	if err := validateRepoURL("comfyui_manager_repo", c.ComfyUIManagerRepo); err != nil {
		return err
	}

	for i, m := range c.Models {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("models[%d]: %w", i, err)
		}
	}

	if err := c.SSH.validate(); err != nil {
		return fmt.Errorf("ssh: %w", err)
	}

	return nil
}

func (s SSHConfig) validate() error {
	switch s.HostKeyPolicy {
	case "", HostKeyPolicyTrust:
	case HostKeyPolicyKnownHosts:
		if s.KnownHostsPath == "" {
			return fmt.Errorf("known_hosts_path is required when host_key_policy is %q", HostKeyPolicyKnownHosts)
		}
	default:
		return fmt.Errorf("invalid host_key_policy %q: must be %q or %q", s.HostKeyPolicy, HostKeyPolicyTrust, HostKeyPolicyKnownHosts)
	}
	if !s.ShouldInjectEphemeralKey() && !s.ShouldUseAgent() && s.PrivateKeyPath == "" {
		return fmt.Errorf("no authentication method: enable inject_ephemeral_key or use_agent, or set private_key_path")
	}
	return nil
}

func validateRepoURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s %q is not a valid URL", field, raw)
	}
	return nil
}
