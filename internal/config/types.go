package config

import (
	"slices"

	"github.com/imamik/comfyprov/internal/util/ptr"
)

// ModelType classifies a model artifact and decides its default install directory.
type ModelType string

// Known model types.
const (
	ModelTypeCheckpoint ModelType = "checkpoint"
	ModelTypeLoRA       ModelType = "lora"
	ModelTypeVAE        ModelType = "vae"
	ModelTypeEmbedding  ModelType = "embedding"
	ModelTypeControlNet ModelType = "controlnet"
)

// modelDirs maps model types to their directory under ComfyUI/models/.
var modelDirs = map[ModelType]string{
	ModelTypeCheckpoint: "checkpoints",
	ModelTypeLoRA:       "loras",
	ModelTypeVAE:        "vae",
	ModelTypeEmbedding:  "embeddings",
	ModelTypeControlNet: "controlnet",
}

// ModelTypes returns all known model types in display order.
func ModelTypes() []ModelType {
	return []ModelType{
		ModelTypeCheckpoint,
		ModelTypeLoRA,
		ModelTypeVAE,
		ModelTypeEmbedding,
		ModelTypeControlNet,
	}
}

// Known reports whether t is one of the known model types.
func (t ModelType) Known() bool {
	_, ok := modelDirs[t]
	return ok
}

// DefaultDir returns the directory for t, falling back to checkpoints.
func (t ModelType) DefaultDir() string {
	if dir, ok := modelDirs[t]; ok {
		return dir
	}
	return modelDirs[ModelTypeCheckpoint]
}

// ModelSpec describes one downloadable model artifact.
type ModelSpec struct {
	// Name is the file name written on the instance (e.g. "sd_xl_base_1.0.safetensors").
	Name string `yaml:"name"`
	// URL is the download location.
	URL string `yaml:"url"`
	// Type selects the default install directory.
	Type ModelType `yaml:"type,omitempty"`
	// Subfolder overrides the install directory under ComfyUI/models/.
	Subfolder string `yaml:"subfolder,omitempty"`
}

// NewModelSpec returns a validated ModelSpec. An empty type means checkpoint.
func NewModelSpec(name, url string, typ ModelType, subfolder string) (ModelSpec, error) {
	if typ == "" {
		typ = ModelTypeCheckpoint
	}
	m := ModelSpec{Name: name, URL: url, Type: typ, Subfolder: subfolder}
	if err := m.Validate(); err != nil {
		return ModelSpec{}, err
	}
	return m, nil
}

// InstallPath returns the directory, relative to ComfyUI/models/, where the
// artifact is placed.
func (m ModelSpec) InstallPath() string {
	if m.Subfolder != "" {
		return m.Subfolder
	}
	return m.Type.DefaultDir()
}

// SSHConfig controls how the session manager reaches the instance.
type SSHConfig struct {
	// User is the login user. Provider images run everything as root.
	User string `yaml:"user,omitempty"`
	// PrivateKeyPath is an additional private key to offer.
	PrivateKeyPath string `yaml:"private_key_path,omitempty"`
	// InjectEphemeralKey controls whether a per-run key pair is generated and
	// its public half passed to the provider at creation time.
	InjectEphemeralKey *bool `yaml:"inject_ephemeral_key,omitempty"`
	// UseAgent offers the keys held by the local ssh-agent.
	UseAgent *bool `yaml:"use_agent,omitempty"`
	// HostKeyPolicy is "trust" (accept any host key) or "known_hosts".
	HostKeyPolicy string `yaml:"host_key_policy,omitempty"`
	// KnownHostsPath is read when HostKeyPolicy is "known_hosts".
	KnownHostsPath string `yaml:"known_hosts_path,omitempty"`
}

// ShouldInjectEphemeralKey reports whether a per-run key is generated.
func (s SSHConfig) ShouldInjectEphemeralKey() bool {
	return s.InjectEphemeralKey == nil || *s.InjectEphemeralKey
}

// ShouldUseAgent reports whether the local ssh-agent is consulted.
func (s SSHConfig) ShouldUseAgent() bool {
	return s.UseAgent == nil || *s.UseAgent
}

// ProvisioningConfig is the complete input of one provisioning run.
type ProvisioningConfig struct {
	// Provider selects the compute backend ("runpod" or "hcloud").
	Provider string `yaml:"provider,omitempty"`

	APIKey  string `yaml:"api_key,omitempty"`
	HFToken string `yaml:"hf_token,omitempty"`

	GPUTypeID           string `yaml:"gpu_type_id,omitempty"`
	CloudType           string `yaml:"cloud_type,omitempty"`
	VolumeSizeGB        int    `yaml:"volume_size_gb,omitempty"`
	ContainerDiskSizeGB int    `yaml:"container_disk_size_gb,omitempty"`
	// TemplateID is the container image (RunPod) or OS image (Hetzner).
	TemplateID string `yaml:"template_id,omitempty"`
	// Location pins the Hetzner location. Ignored by RunPod.
	Location string `yaml:"location,omitempty"`
	// NamePrefix is prepended to generated instance names.
	NamePrefix string `yaml:"name_prefix,omitempty"`

	Models []ModelSpec `yaml:"models,omitempty"`

	ComfyUIRepo        string `yaml:"comfyui_repo,omitempty"`
	ComfyUIManagerRepo string `yaml:"comfyui_manager_repo,omitempty"`

	SSH SSHConfig `yaml:"ssh,omitempty"`
}

// ApplyDefaults fills every unset field with its default.
func (c *ProvisioningConfig) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.GPUTypeID == "" {
		if c.Provider == ProviderHCloud {
			c.GPUTypeID = DefaultHCloudServerType
		} else {
			c.GPUTypeID = DefaultGPUTypeID
		}
	}
	if c.CloudType == "" {
		c.CloudType = DefaultCloudType
	}
	if c.VolumeSizeGB == 0 {
		c.VolumeSizeGB = DefaultVolumeSizeGB
	}
	if c.ContainerDiskSizeGB == 0 {
		c.ContainerDiskSizeGB = DefaultContainerDiskSizeGB
	}
	if c.TemplateID == "" {
		if c.Provider == ProviderHCloud {
			c.TemplateID = DefaultHCloudImage
		} else {
			c.TemplateID = DefaultTemplateID
		}
	}
	if c.Provider == ProviderHCloud && c.Location == "" {
		c.Location = DefaultHCloudLocation
	}
	if c.ComfyUIRepo == "" {
		c.ComfyUIRepo = DefaultComfyUIRepo
	}
	if c.ComfyUIManagerRepo == "" {
		c.ComfyUIManagerRepo = DefaultComfyUIManagerRepo
	}
	if c.SSH.User == "" {
		c.SSH.User = DefaultSSHUser
	}
	if c.SSH.HostKeyPolicy == "" {
		c.SSH.HostKeyPolicy = HostKeyPolicyTrust
	}
	for i := range c.Models {
		if c.Models[i].Type == "" {
			c.Models[i].Type = ModelTypeCheckpoint
		}
	}
}

// AddModel appends a model, keeping insertion order. Duplicate names are kept.
func (c *ProvisioningConfig) AddModel(m ModelSpec) {
	c.Models = append(c.Models, m)
}

// Clone returns a deep copy, used as the frozen snapshot handed to a run.
func (c *ProvisioningConfig) Clone() *ProvisioningConfig {
	out := *c
	out.Models = slices.Clone(c.Models)
	if c.SSH.InjectEphemeralKey != nil {
		out.SSH.InjectEphemeralKey = ptr.Bool(*c.SSH.InjectEphemeralKey)
	}
	if c.SSH.UseAgent != nil {
		out.SSH.UseAgent = ptr.Bool(*c.SSH.UseAgent)
	}
	return &out
}

// Default returns a configuration with all defaults applied.
func Default() *ProvisioningConfig {
	cfg := &ProvisioningConfig{}
	cfg.ApplyDefaults()
	return cfg
}
