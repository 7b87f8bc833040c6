package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/comfyprov/internal/config"
)

func testConfig() *config.ProvisioningConfig {
	cfg := config.Default()
	cfg.APIKey = "rpa_test"
	return cfg
}

func downloadLinesOf(script string) []string {
	var out []string
	for _, l := range strings.Split(script, "\n") {
		if strings.HasPrefix(l, "wget ") {
			out = append(out, l)
		}
	}
	return out
}

func TestSynthesize_NoModels(t *testing.T) {
	s := Synthesize(testConfig())

	want := strings.Join([]string{
		"#!/bin/bash",
		"set -e",
		"echo 'Starting ComfyUI Provisioning...'",
		"cd /workspace",
		"",
		"# Install ComfyUI",
		"if [ ! -d 'ComfyUI' ]; then",
		"  git clone https://github.com/comfyanonymous/ComfyUI",
		"fi",
		"cd ComfyUI",
		"pip install -r requirements.txt",
		"",
		"# Install Manager",
		"cd custom_nodes",
		"if [ ! -d 'ComfyUI-Manager' ]; then",
		"  git clone https://github.com/ltdrdata/ComfyUI-Manager.git",
		"fi",
		"cd ..",
		"",
		"# Download Models",
		"echo 'Provisioning Complete!'",
	}, "\n")

	assert.Equal(t, want, s)
	assert.Empty(t, downloadLinesOf(s))
	assert.False(t, strings.HasSuffix(s, "\n"))
}

func TestSynthesize_HuggingFaceModelWithToken(t *testing.T) {
	cfg := testConfig()
	cfg.HFToken = "tok"
	cfg.AddModel(config.ModelSpec{
		Name: "a.safetensors",
		URL:  "https://huggingface.co/x/a.safetensors",
		Type: config.ModelTypeCheckpoint,
	})

	s := Synthesize(cfg)

	lines := downloadLinesOf(s)
	require.Len(t, lines, 1)
	assert.Equal(t,
		"wget --header='Authorization: Bearer tok' -O 'models/checkpoints/a.safetensors' 'https://huggingface.co/x/a.safetensors'",
		lines[0])
	assert.Contains(t, s, "echo 'Downloading a.safetensors...'\nmkdir -p 'models/checkpoints'\nwget ")
	assert.True(t, strings.HasSuffix(s, "\necho 'Provisioning Complete!'"))
}

func TestSynthesize_AuthHeaderRequiresHostAndToken(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		token      string
		wantHeader bool
	}{
		{"hf host with token", "https://huggingface.co/m/resolve/main/x.bin", "tok", true},
		{"hf subdomain with token", "https://cdn-lfs.huggingface.co/x.bin", "tok", true},
		{"hf host without token", "https://huggingface.co/m/x.bin", "", false},
		{"other host with token", "https://civitai.com/api/download/models/1", "tok", false},
		{"hf in path only", "https://example.com/huggingface.co/x.bin", "tok", false},
		{"hf host in upper case", "https://HuggingFace.co/m/resolve/main/x.bin", "tok", true},
		{"hf host with port", "https://huggingface.co:443/m/x.bin", "tok", true},
		{"hf name as subdomain of other host", "https://huggingface.co.example.net/x.bin", "tok", false},
		{"hf name as suffix of other domain", "https://nothuggingface.co/x.bin", "tok", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.HFToken = tt.token
			cfg.AddModel(config.ModelSpec{Name: "x.bin", URL: tt.url, Type: config.ModelTypeVAE})

			lines := downloadLinesOf(Synthesize(cfg))
			require.Len(t, lines, 1)
			assert.Equal(t, tt.wantHeader, strings.Contains(lines[0], "Authorization: Bearer"))
		})
	}
}

func TestSynthesize_SkipsNonHTTPURLs(t *testing.T) {
	cfg := testConfig()
	cfg.AddModel(config.ModelSpec{Name: "a", URL: "ftp://example.com/a", Type: config.ModelTypeLoRA})
	cfg.AddModel(config.ModelSpec{Name: "b", URL: "s3://bucket/b", Type: config.ModelTypeLoRA})
	cfg.AddModel(config.ModelSpec{Name: "c", URL: "httpfoo", Type: config.ModelTypeLoRA})
	cfg.AddModel(config.ModelSpec{Name: "d", URL: "http://example.com/d", Type: config.ModelTypeLoRA})

	s := Synthesize(cfg)

	lines := downloadLinesOf(s)
	require.Len(t, lines, 1)
	assert.Equal(t, "wget -O 'models/loras/d' 'http://example.com/d'", lines[0])
	assert.NotContains(t, s, "Downloading a...")
	assert.NotContains(t, s, "Downloading c...")
}

func TestSynthesize_PreservesOrderAndDuplicates(t *testing.T) {
	cfg := testConfig()
	cfg.AddModel(config.ModelSpec{Name: "m", URL: "https://example.com/1", Type: config.ModelTypeCheckpoint})
	cfg.AddModel(config.ModelSpec{Name: "n", URL: "https://example.com/2", Type: config.ModelTypeEmbedding})
	cfg.AddModel(config.ModelSpec{Name: "m", URL: "https://example.com/3", Type: config.ModelTypeCheckpoint, Subfolder: "upscale_models"})

	lines := downloadLinesOf(Synthesize(cfg))
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "'models/checkpoints/m' 'https://example.com/1'")
	assert.Contains(t, lines[1], "'models/embeddings/n' 'https://example.com/2'")
	assert.Contains(t, lines[2], "'models/upscale_models/m' 'https://example.com/3'")
}

func TestSynthesize_Deterministic(t *testing.T) {
	cfg := testConfig()
	cfg.HFToken = "tok"
	cfg.AddModel(config.ModelSpec{Name: "a", URL: "https://huggingface.co/a", Type: config.ModelTypeVAE})

	first := Synthesize(cfg)
	second := Synthesize(cfg.Clone())

	assert.Equal(t, first, second)
	assert.Equal(t, Checksum(first), Checksum(second))
}

func TestSynthesize_EscapesSingleQuotes(t *testing.T) {
	cfg := testConfig()
	cfg.AddModel(config.ModelSpec{Name: "it's.bin", URL: "https://example.com/it's.bin", Type: config.ModelTypeCheckpoint})

	lines := downloadLinesOf(Synthesize(cfg))
	require.Len(t, lines, 1)
	assert.Equal(t, `wget -O 'models/checkpoints/it'\''s.bin' 'https://example.com/it'\''s.bin'`, lines[0])
}

func TestSynthesize_QuotesUnsafeRepoURL(t *testing.T) {
	cfg := testConfig()
	cfg.ComfyUIRepo = "https://example.com/a;b"

	assert.Contains(t, Synthesize(cfg), "  git clone 'https://example.com/a;b'\n")
}

func TestChecksum(t *testing.T) {
	// sha256("")
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Checksum(""))
	assert.Len(t, Checksum(Synthesize(testConfig())), 64)
}
