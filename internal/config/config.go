// Package config handles layered configuration: defaults, a global file, a
// local (per-project) file, and environment variables (spec.md §6.4/§6.5),
// grounded on the teacher's single-file TOML loader generalized to a
// 4-layer merge.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure, merged across layers.
type Config struct {
	DefaultProvider string                    `toml:"default_provider"`
	WeakProvider    string                    `toml:"weak_provider"`
	Providers       map[string]ProviderConfig `toml:"providers"`
	Tools           []string                  `toml:"tools"`
	SystemPrompt    string                    `toml:"system_prompt"`
	MaxIterations   int                       `toml:"max_iterations"`
}

// ProviderConfig holds settings for one configured provider.
type ProviderConfig struct {
	Endpoint    string  `toml:"endpoint"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	// Kind selects the backend implementation: "" (default) is the plain
	// OpenAI-compatible chat-completions client; "zen" routes through the
	// multi-format relay SDK (spec.md §6.4's optional weak/editor provider).
	Kind string `toml:"kind"`
	// APIKeyEnv names the environment variable holding this provider's
	// credential (e.g. "OPENROUTER_API_KEY"). Defaults to OPENROUTER_API_KEY.
	APIKeyEnv string `toml:"api_key_env"`
}

func defaults() *Config {
	return &Config{
		DefaultProvider: "default",
		Providers: map[string]ProviderConfig{
			"default": {
				Endpoint:  "https://openrouter.ai/api/v1",
				Model:     "anthropic/claude-sonnet-4.5",
				APIKeyEnv: "OPENROUTER_API_KEY",
			},
		},
		MaxIterations: 20,
	}
}

// Load merges defaults -> global file -> local file -> environment, then
// validates the result. cwd is the directory a local config file is
// resolved relative to.
func Load(cwd string) (*Config, error) {
	cfg := defaults()

	home, err := HeddleHome()
	if err != nil {
		return nil, err
	}

	globalPath := filepath.Join(home, "config.toml")
	if err := mergeFile(cfg, globalPath); err != nil {
		return nil, err
	}

	localPath := filepath.Join(cwd, ".heddle.toml")
	if err := mergeFile(cfg, localPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile decodes path into a scratch Config (if the file exists) and
// merges non-zero fields onto cfg. A missing file is not an error — only
// the global/local layers are optional; the credential check in
// ResolveAPIKey is what actually requires something to be configured.
func mergeFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	var layer Config
	if _, err := toml.DecodeFile(path, &layer); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	mergeInto(cfg, &layer)
	return nil
}

// mergeInto overlays non-zero fields of src onto dst. Providers merge
// per-key so a local file can override just one provider's model.
func mergeInto(dst, src *Config) {
	if src.DefaultProvider != "" {
		dst.DefaultProvider = src.DefaultProvider
	}
	if src.WeakProvider != "" {
		dst.WeakProvider = src.WeakProvider
	}
	if src.SystemPrompt != "" {
		dst.SystemPrompt = src.SystemPrompt
	}
	if src.MaxIterations > 0 {
		dst.MaxIterations = src.MaxIterations
	}
	if len(src.Tools) > 0 {
		dst.Tools = src.Tools
	}
	if len(src.Providers) > 0 {
		if dst.Providers == nil {
			dst.Providers = make(map[string]ProviderConfig)
		}
		for name, pc := range src.Providers {
			dst.Providers[name] = pc
		}
	}
}

// applyEnvOverrides applies HEDDLE_* environment overrides (§6.5). Only
// HEDDLE_BASE_URL affects Config directly — HEDDLE_PROTOCOL_VERSION and
// HEDDLE_DEBUG* are consumed by the headless and debuglog packages
// respectively, and the credential variable is read by ResolveAPIKey during
// provider construction.
func applyEnvOverrides(cfg *Config) {
	baseURL := os.Getenv("HEDDLE_BASE_URL")
	if baseURL == "" {
		return
	}
	pc := cfg.Providers[cfg.DefaultProvider]
	pc.Endpoint = baseURL
	cfg.Providers[cfg.DefaultProvider] = pc
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Providers) == 0 {
		errs = append(errs, errors.New("providers: at least one provider must be configured"))
	} else {
		for name, providerCfg := range c.Providers {
			errs = append(errs, validateProviderConfig(name, providerCfg)...)
		}
	}

	if c.DefaultProvider != "" {
		if _, ok := c.Providers[c.DefaultProvider]; !ok {
			errs = append(errs, fmt.Errorf("default_provider=%q does not exist in providers", c.DefaultProvider))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateProviderConfig(name string, cfg ProviderConfig) []error {
	var errs []error
	if cfg.Endpoint == "" {
		errs = append(errs, fmt.Errorf("providers.%s.endpoint is required", name))
	} else if err := validateEndpoint(cfg.Endpoint); err != nil {
		errs = append(errs, fmt.Errorf("providers.%s.endpoint=%q is invalid: %v", name, cfg.Endpoint, err))
	}

	if cfg.Model == "" {
		errs = append(errs, fmt.Errorf("providers.%s.model is required", name))
	}

	if cfg.Temperature < 0.0 || cfg.Temperature > 2.0 {
		errs = append(errs, fmt.Errorf("providers.%s.temperature=%v must be between 0.0 and 2.0", name, cfg.Temperature))
	}

	return errs
}

func validateEndpoint(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("missing scheme or host")
	}
	return nil
}

// APIKeyEnvOrDefault returns the provider's configured credential variable
// name, defaulting to OPENROUTER_API_KEY.
func (p ProviderConfig) APIKeyEnvOrDefault() string {
	if p.APIKeyEnv == "" {
		return "OPENROUTER_API_KEY"
	}
	return p.APIKeyEnv
}

// HeddleHome returns the global config/state directory, honoring
// HEDDLE_HOME (relative paths resolve from cwd).
func HeddleHome() (string, error) {
	if home := os.Getenv("HEDDLE_HOME"); home != "" {
		if filepath.IsAbs(home) {
			return home, nil
		}
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(cwd, home), nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".config", "heddle"), nil
}

// EnsureHeddleHome creates the global config/state directory if absent.
func EnsureHeddleHome() (string, error) {
	dir, err := HeddleHome()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}
