package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *ProvisioningConfig {
	cfg := Default()
	cfg.APIKey = "rpa_test"
	return cfg
}

func TestValidate(t *testing.T) {
	no := false

	tests := []struct {
		name    string
		mutate  func(*ProvisioningConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*ProvisioningConfig) {}},
		{name: "valid hcloud", mutate: func(c *ProvisioningConfig) { c.Provider = ProviderHCloud }},
		{name: "missing api key", mutate: func(c *ProvisioningConfig) { c.APIKey = "" }, wantErr: "api_key is required"},
		{name: "unknown provider", mutate: func(c *ProvisioningConfig) { c.Provider = "lambda" }, wantErr: "invalid provider"},
		{name: "bad cloud type", mutate: func(c *ProvisioningConfig) { c.CloudType = "PRIVATE" }, wantErr: "invalid cloud_type"},
		{name: "lowercase cloud type", mutate: func(c *ProvisioningConfig) { c.CloudType = "secure" }},
		{name: "missing gpu", mutate: func(c *ProvisioningConfig) { c.GPUTypeID = "" }, wantErr: "gpu_type_id is required"},
		{name: "negative volume", mutate: func(c *ProvisioningConfig) { c.VolumeSizeGB = -1 }, wantErr: "volume_size_gb"},
		{name: "negative disk", mutate: func(c *ProvisioningConfig) { c.ContainerDiskSizeGB = -5 }, wantErr: "container_disk_size_gb"},
		{name: "bad repo", mutate: func(c *ProvisioningConfig) { c.ComfyUIRepo = "not a url" }, wantErr: "comfyui_repo"},
		{name: "missing manager repo", mutate: func(c *ProvisioningConfig) { c.ComfyUIManagerRepo = "" }, wantErr: "comfyui_manager_repo is required"},
		{
			name:    "model without url",
			mutate:  func(c *ProvisioningConfig) { c.Models = []ModelSpec{{Name: "a"}} },
			wantErr: "models[0]: model \"a\": url is required",
		},
		{
			name:    "model name with path",
			mutate:  func(c *ProvisioningConfig) { c.Models = []ModelSpec{{Name: "../a", URL: "https://x"}} },
			wantErr: "must be a file name",
		},
		{
			name:   "non http model url is allowed",
			mutate: func(c *ProvisioningConfig) { c.Models = []ModelSpec{{Name: "a", URL: "s3://bucket/a"}} },
		},
		{
			name:    "unknown host key policy",
			mutate:  func(c *ProvisioningConfig) { c.SSH.HostKeyPolicy = "tofu" },
			wantErr: "invalid host_key_policy",
		},
		{
			name:    "known_hosts without path",
			mutate:  func(c *ProvisioningConfig) { c.SSH.HostKeyPolicy = HostKeyPolicyKnownHosts },
			wantErr: "known_hosts_path is required",
		},
		{
			name: "no auth method",
			mutate: func(c *ProvisioningConfig) {
				c.SSH.InjectEphemeralKey = &no
				c.SSH.UseAgent = &no
			},
			wantErr: "no authentication method",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
