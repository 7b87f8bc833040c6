package config

// Provider identifiers.
const (
	ProviderRunPod = "runpod"
	ProviderHCloud = "hcloud"
)

// Cloud tiers accepted by RunPod.
const (
	CloudTypeCommunity = "COMMUNITY"
	CloudTypeSecure    = "SECURE"
	CloudTypeAll       = "ALL"
)

// Host key policies.
const (
	HostKeyPolicyTrust      = "trust"
	HostKeyPolicyKnownHosts = "known_hosts"
)

// Defaults applied by [ProvisioningConfig.ApplyDefaults].
const (
	DefaultProvider            = ProviderRunPod
	DefaultGPUTypeID           = "NVIDIA GeForce RTX 3090"
	DefaultCloudType           = CloudTypeCommunity
	DefaultVolumeSizeGB        = 40
	DefaultContainerDiskSizeGB = 40
	DefaultTemplateID          = "runpod/pytorch:2.0.1-py3.10-cuda11.8.0-devel-ubuntu22.04"
	DefaultHCloudServerType    = "cpx41"
	DefaultHCloudImage         = "ubuntu-24.04"
	DefaultHCloudLocation      = "fsn1"
	DefaultComfyUIRepo         = "https://github.com/comfyanonymous/ComfyUI"
	DefaultComfyUIManagerRepo  = "https://github.com/ltdrdata/ComfyUI-Manager.git"
	DefaultSSHUser             = "root"
)

// Ports exposed on every instance.
const (
	// ComfyUIPort is the private port of the ComfyUI web server.
	ComfyUIPort = 8188
	// SSHPort is the private port of the instance's SSH daemon.
	SSHPort = 22
)

// Environment variables read by [ApplyEnv].
const (
	EnvRunPodAPIKey = "RUNPOD_API_KEY"
	EnvHCloudToken  = "HCLOUD_TOKEN"
	EnvHFToken      = "HF_TOKEN"
	EnvProvider     = "COMFYPROV_PROVIDER"
)
