package provisioning

import (
	"context"
	"fmt"
	"iter"

	"github.com/go-logr/logr"

	"github.com/imamik/comfyprov/internal/config"
	"github.com/imamik/comfyprov/internal/platform/compute"
	hcloud_internal "github.com/imamik/comfyprov/internal/platform/hcloud"
	"github.com/imamik/comfyprov/internal/platform/runpod"
	"github.com/imamik/comfyprov/internal/platform/ssh"
)

// ScriptRun is one execution of the setup script.
type ScriptRun interface {
	// Lines yields the script output. It can be consumed once.
	Lines() iter.Seq[string]
	// Err reports how the run ended once Lines is exhausted.
	Err() error
}

// Session runs the setup script on a ready instance.
type Session interface {
	Start(ctx context.Context, inst *compute.Instance, script string) ScriptRun
}

// ProviderFactory builds the compute backend selected by cfg.
type ProviderFactory func(cfg *config.ProvisioningConfig, timeouts *config.Timeouts, log logr.Logger) (compute.Provider, error)

// SessionFactory builds a Session from connection settings.
type SessionFactory func(cfg *ssh.Config) (Session, error)

// NewProvider returns the backend named by cfg.Provider.
func NewProvider(cfg *config.ProvisioningConfig, timeouts *config.Timeouts, log logr.Logger) (compute.Provider, error) {
	switch cfg.Provider {
	case config.ProviderRunPod:
		return runpod.NewClient(cfg.APIKey,
			runpod.WithTimeouts(timeouts),
			runpod.WithLogger(log),
		), nil
	case config.ProviderHCloud:
		return hcloud_internal.NewClient(cfg.APIKey,
			hcloud_internal.WithTimeouts(timeouts),
			hcloud_internal.WithLocation(cfg.Location),
			hcloud_internal.WithLogger(log),
		), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// NewSSHSession is the default SessionFactory.
func NewSSHSession(cfg *ssh.Config) (Session, error) {
	m, err := ssh.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return sshSession{m}, nil
}

type sshSession struct {
	m *ssh.Manager
}

func (s sshSession) Start(ctx context.Context, inst *compute.Instance, script string) ScriptRun {
	return s.m.Start(ctx, inst, script)
}

// ProviderDisplayName returns the human-readable name of a provider.
func ProviderDisplayName(provider string) string {
	switch provider {
	case config.ProviderRunPod:
		return "RunPod"
	case config.ProviderHCloud:
		return "Hetzner Cloud"
	default:
		return provider
	}
}
