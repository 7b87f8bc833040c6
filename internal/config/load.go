package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFilename is the default configuration filename.
const DefaultConfigFilename = "comfyprov.yaml"

// DefaultDotEnvFilename is read for secrets when present.
const DefaultDotEnvFilename = ".env"

// LoadFile reads a YAML configuration, completes it from the environment,
// applies defaults and validates it.
func LoadFile(path string) (*ProvisioningConfig, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// ReadFile parses a YAML configuration and completes it from the
// environment. Defaults are not applied and nothing is validated, so
// commands that never reach a provider can work without credentials.
func ReadFile(path string) (*ProvisioningConfig, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := parseConfig(data)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg, os.Getenv)
	return cfg, nil
}

// LoadFromBytes parses, completes and validates a YAML configuration.
func LoadFromBytes(data []byte) (*ProvisioningConfig, error) {
	cfg, err := parseConfig(data)
	if err != nil {
		return nil, err
	}

	ApplyEnv(cfg, os.Getenv)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// parseConfig parses YAML data into a ProvisioningConfig.
func parseConfig(data []byte) (*ProvisioningConfig, error) {
	var cfg ProvisioningConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv fills credentials and the provider from the environment.
// Environment values take precedence over values from the file.
func ApplyEnv(cfg *ProvisioningConfig, getenv func(string) string) {
	if p := getenv(EnvProvider); p != "" {
		cfg.Provider = strings.ToLower(p)
	}

	keyVar := EnvRunPodAPIKey
	if cfg.Provider == ProviderHCloud {
		keyVar = EnvHCloudToken
	}
	if key := getenv(keyVar); key != "" {
		cfg.APIKey = key
	}
	if tok := getenv(EnvHFToken); tok != "" {
		cfg.HFToken = tok
	}
}

// LoadDotEnv loads variables from a .env file without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DefaultDotEnvFilename
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// FindConfigFile searches for a config file in the current directory and
// then in every parent directory.
func FindConfigFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	dir := cwd
	for {
		path := filepath.Join(dir, DefaultConfigFilename)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("config file %s not found", DefaultConfigFilename)
}

// Save writes a configuration to a file. Credentials are never written.
func Save(cfg *ProvisioningConfig, path string) error {
	out := cfg.Clone()
	out.APIKey = ""
	out.HFToken = ""

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ParseModelFlag parses the --model flag syntax:
//
//	name=url[,type=lora][,subfolder=dir]
//
// The first pair is always the file name and its URL.
func ParseModelFlag(s string) (ModelSpec, error) {
	parts := strings.Split(s, ",")
	name, url, ok := strings.Cut(parts[0], "=")
	if !ok {
		return ModelSpec{}, fmt.Errorf("invalid model %q: expected name=url", s)
	}

	var typ ModelType
	var subfolder string
	for _, opt := range parts[1:] {
		k, v, ok := strings.Cut(opt, "=")
		if !ok {
			return ModelSpec{}, fmt.Errorf("invalid model option %q: expected key=value", opt)
		}
		switch strings.TrimSpace(k) {
		case "type":
			typ = ModelType(strings.ToLower(strings.TrimSpace(v)))
			if !typ.Known() {
				return ModelSpec{}, fmt.Errorf("invalid model type %q: must be one of %v", v, ModelTypes())
			}
		case "subfolder":
			subfolder = strings.TrimSpace(v)
		default:
			return ModelSpec{}, fmt.Errorf("unknown model option %q", k)
		}
	}

	return NewModelSpec(strings.TrimSpace(name), strings.TrimSpace(url), typ, subfolder)
}
