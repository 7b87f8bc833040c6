package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelSpec_InstallPath_Defaults(t *testing.T) {
	tests := []struct {
		typ  ModelType
		want string
	}{
		{ModelTypeCheckpoint, "checkpoints"},
		{ModelTypeLoRA, "loras"},
		{ModelTypeVAE, "vae"},
		{ModelTypeEmbedding, "embeddings"},
		{ModelTypeControlNet, "controlnet"},
		{ModelType("upscaler"), "checkpoints"},
		{ModelType(""), "checkpoints"},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			m := ModelSpec{Name: "m.safetensors", URL: "https://example.com/m", Type: tt.typ}
			assert.Equal(t, tt.want, m.InstallPath())
		})
	}
}

func TestModelSpec_InstallPath_SubfolderWins(t *testing.T) {
	for _, typ := range append(ModelTypes(), ModelType("unknown")) {
		m := ModelSpec{Name: "m", URL: "https://example.com/m", Type: typ, Subfolder: "upscale_models"}
		assert.Equal(t, "upscale_models", m.InstallPath(), "type %s", typ)
	}
}

func TestNewModelSpec(t *testing.T) {
	m, err := NewModelSpec("a.safetensors", "https://huggingface.co/x/a.safetensors", "", "")
	require.NoError(t, err)
	assert.Equal(t, ModelTypeCheckpoint, m.Type)

	_, err = NewModelSpec("", "https://example.com", ModelTypeLoRA, "")
	assert.ErrorContains(t, err, "name is required")

	_, err = NewModelSpec("x", "", ModelTypeLoRA, "")
	assert.ErrorContains(t, err, "url is required")
}

func TestApplyDefaults(t *testing.T) {
	cfg := &ProvisioningConfig{
		Models: []ModelSpec{{Name: "a", URL: "https://example.com/a"}},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, ProviderRunPod, cfg.Provider)
	assert.Equal(t, DefaultGPUTypeID, cfg.GPUTypeID)
	assert.Equal(t, CloudTypeCommunity, cfg.CloudType)
	assert.Equal(t, 40, cfg.VolumeSizeGB)
	assert.Equal(t, 40, cfg.ContainerDiskSizeGB)
	assert.Equal(t, DefaultTemplateID, cfg.TemplateID)
	assert.Equal(t, DefaultComfyUIRepo, cfg.ComfyUIRepo)
	assert.Equal(t, DefaultComfyUIManagerRepo, cfg.ComfyUIManagerRepo)
	assert.Equal(t, "root", cfg.SSH.User)
	assert.Equal(t, HostKeyPolicyTrust, cfg.SSH.HostKeyPolicy)
	assert.True(t, cfg.SSH.ShouldInjectEphemeralKey())
	assert.True(t, cfg.SSH.ShouldUseAgent())
	assert.Equal(t, ModelTypeCheckpoint, cfg.Models[0].Type)
	assert.Empty(t, cfg.Location)
}

func TestApplyDefaults_HCloud(t *testing.T) {
	cfg := &ProvisioningConfig{Provider: ProviderHCloud}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultHCloudServerType, cfg.GPUTypeID)
	assert.Equal(t, DefaultHCloudImage, cfg.TemplateID)
	assert.Equal(t, DefaultHCloudLocation, cfg.Location)
}

func TestAddModel_KeepsOrderAndDuplicates(t *testing.T) {
	cfg := Default()
	cfg.AddModel(ModelSpec{Name: "a", URL: "https://example.com/1"})
	cfg.AddModel(ModelSpec{Name: "b", URL: "https://example.com/2"})
	cfg.AddModel(ModelSpec{Name: "a", URL: "https://example.com/3"})

	require.Len(t, cfg.Models, 3)
	assert.Equal(t, "https://example.com/1", cfg.Models[0].URL)
	assert.Equal(t, "b", cfg.Models[1].Name)
	assert.Equal(t, "https://example.com/3", cfg.Models[2].URL)
}

func TestClone_IsIndependent(t *testing.T) {
	inject := false
	cfg := Default()
	cfg.SSH.InjectEphemeralKey = &inject
	cfg.AddModel(ModelSpec{Name: "a", URL: "https://example.com/a"})

	snap := cfg.Clone()
	cfg.Models[0].Name = "changed"
	cfg.AddModel(ModelSpec{Name: "b", URL: "https://example.com/b"})
	*cfg.SSH.InjectEphemeralKey = true

	require.Len(t, snap.Models, 1)
	assert.Equal(t, "a", snap.Models[0].Name)
	assert.False(t, snap.SSH.ShouldInjectEphemeralKey())
}
