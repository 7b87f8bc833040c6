package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvision(t *testing.T) {
	cmd := Provision()

	require.NotNil(t, cmd)
	assert.Equal(t, "provision", cmd.Use)
	assert.Contains(t, cmd.Long, "name=url")
	assert.NotNil(t, cmd.RunE)
	assert.Error(t, cmd.Args(cmd, []string{"extra"}))
}

func TestProvision_Flags(t *testing.T) {
	cmd := Provision()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"config", "c", ""},
		{"model", "m", "[]"},
		{"gpu", "", ""},
		{"yes", "y", "false"},
		{"no-tui", "", "false"},
		{"verbose", "v", "false"},
		{"metrics-file", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := cmd.Flags().Lookup(tt.name)
			require.NotNil(t, flag)
			assert.Equal(t, tt.shorthand, flag.Shorthand)
			assert.Equal(t, tt.defValue, flag.DefValue)
		})
	}
}

func TestProvision_ModelFlagRepeats(t *testing.T) {
	cmd := Provision()

	require.NoError(t, cmd.ParseFlags([]string{
		"-m", "a.safetensors=https://example.com/a,type=lora",
		"--model", "b.safetensors=https://example.com/b",
	}))
	models, err := cmd.Flags().GetStringArray("model")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.safetensors=https://example.com/a,type=lora", "b.safetensors=https://example.com/b"}, models)
}
