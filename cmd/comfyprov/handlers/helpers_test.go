package handlers

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"slices"
	"testing"

	"github.com/go-logr/logr"

	"github.com/imamik/comfyprov/internal/config"
	"github.com/imamik/comfyprov/internal/platform/compute"
	"github.com/imamik/comfyprov/internal/provisioning"
)

// handlerEnv replaces the shared factories for one test and restores them
// afterwards. Output written by handlers lands in out and errOut.
type handlerEnv struct {
	out    *bytes.Buffer
	errOut *bytes.Buffer
	env    map[string]string
}

func setupHandlerTest(t *testing.T) *handlerEnv {
	t.Helper()

	origDotEnv := loadDotEnv
	origFind := findConfigFile
	origRead := readConfigFile
	origGetenv := getenv
	origProvider := newProvider
	origTimeouts := loadTimeouts
	origTerminal := isTerminal
	origStdout := stdout
	origStderr := stderr
	origOrch := newOrchestrator
	origConfirm := confirmProvision
	origTUI := runTUI
	origMetrics := writeMetrics
	origExists := fileExists
	origWizard := runWizard
	origSave := saveConfig

	t.Cleanup(func() {
		loadDotEnv = origDotEnv
		findConfigFile = origFind
		readConfigFile = origRead
		getenv = origGetenv
		newProvider = origProvider
		loadTimeouts = origTimeouts
		isTerminal = origTerminal
		stdout = origStdout
		stderr = origStderr
		newOrchestrator = origOrch
		confirmProvision = origConfirm
		runTUI = origTUI
		writeMetrics = origMetrics
		fileExists = origExists
		runWizard = origWizard
		saveConfig = origSave
	})

	h := &handlerEnv{
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
		env:    map[string]string{config.EnvRunPodAPIKey: "rpa_test"},
	}

	stdout = h.out
	stderr = h.errOut
	loadDotEnv = func(string) error { return nil }
	findConfigFile = func() (string, error) { return "", errors.New("config file comfyprov.yaml not found") }
	getenv = func(k string) string { return h.env[k] }
	loadTimeouts = func() *config.Timeouts { return &config.Timeouts{} }
	isTerminal = func() bool { return false }

	return h
}

// withProvider makes newProvider return p and records the config it saw.
func withProvider(p compute.Provider, seen **config.ProvisioningConfig) {
	newProvider = func(cfg *config.ProvisioningConfig, _ *config.Timeouts, _ logr.Logger) (compute.Provider, error) {
		if seen != nil {
			*seen = cfg
		}
		return p, nil
	}
}

// fakeSource replays fixed lines and records the config of the run.
type fakeSource struct {
	lines []string
	cfg   *config.ProvisioningConfig
	opts  int
	runs  int
}

func (f *fakeSource) Run(_ context.Context, cfg *config.ProvisioningConfig) iter.Seq[string] {
	f.cfg = cfg
	f.runs++
	return slices.Values(f.lines)
}

func withSource(src *fakeSource) {
	newOrchestrator = func(opts ...provisioning.Option) LineSource {
		src.opts = len(opts)
		return src
	}
}
