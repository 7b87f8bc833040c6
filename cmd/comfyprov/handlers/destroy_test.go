package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/comfyprov/internal/config"
	"github.com/imamik/comfyprov/internal/platform/compute"
)

func TestDestroy(t *testing.T) {
	h := setupHandlerTest(t)
	var terminated string
	p := &compute.MockProvider{
		TerminateInstanceFunc: func(_ context.Context, id string) error {
			terminated = id
			return nil
		},
	}
	withProvider(p, nil)

	require.NoError(t, Destroy(context.Background(), "", "pod-1", false))
	assert.Equal(t, "pod-1", terminated)
	assert.Contains(t, h.out.String(), "Instance pod-1 terminated.")
}

func TestDestroy_Error(t *testing.T) {
	setupHandlerTest(t)
	withProvider(&compute.MockProvider{
		TerminateInstanceFunc: func(context.Context, string) error { return errors.New("pod not found") },
	}, nil)

	err := Destroy(context.Background(), "", "pod-1", false)
	assert.EqualError(t, err, "failed to terminate instance pod-1: pod not found")
}

func TestDestroy_HCloudUsesHCloudToken(t *testing.T) {
	h := setupHandlerTest(t)
	h.env = map[string]string{
		config.EnvProvider:    "hcloud",
		config.EnvHCloudToken: "hc_test",
	}
	p := &compute.MockProvider{}
	var seen *config.ProvisioningConfig
	withProvider(p, &seen)

	require.NoError(t, Destroy(context.Background(), "", "42", false))
	require.NotNil(t, seen)
	assert.Equal(t, config.ProviderHCloud, seen.Provider)
	assert.Equal(t, "hc_test", seen.APIKey)
	assert.Equal(t, 1, p.Calls("TerminateInstance"))
}
