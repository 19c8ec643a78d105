package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"twaforge/internal/domain"
)

// Config models twa.yml.
type Config struct {
	Model struct {
		BaseURL        string `yaml:"base_url" json:"base_url,omitempty"`
		Analyze        string `yaml:"analyze" json:"analyze"`
		Generate       string `yaml:"generate" json:"generate"`
		TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	} `yaml:"model" json:"model"`
	Defaults struct {
		VersionName string `yaml:"version_name" json:"version_name"`
		VersionCode int    `yaml:"version_code" json:"version_code"`
		Orientation string `yaml:"orientation" json:"orientation"`
		MinSdk      int    `yaml:"min_sdk" json:"min_sdk"`
		SplashColor string `yaml:"splash_color" json:"splash_color"`
	} `yaml:"defaults" json:"defaults"`
	Server struct {
		Addr     string `yaml:"addr" json:"addr"`
		BasePath string `yaml:"base_path" json:"base_path"`
	} `yaml:"server" json:"server"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with twa config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional falls back to the defaults when the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Model.Analyze == "" {
		return fmt.Errorf("config.model.analyze is required")
	}
	if c.Model.Generate == "" {
		return fmt.Errorf("config.model.generate is required")
	}
	if c.Model.TimeoutSeconds < 0 {
		return fmt.Errorf("config.model.timeout_seconds must not be negative")
	}
	if c.Defaults.VersionCode < 1 {
		return fmt.Errorf("config.defaults.version_code must be positive")
	}
	if c.Defaults.MinSdk < domain.MinSdkFloor {
		return fmt.Errorf("config.defaults.min_sdk must be at least %d", domain.MinSdkFloor)
	}
	if _, err := domain.ParseOrientation(c.Defaults.Orientation); err != nil {
		return fmt.Errorf("config.defaults.orientation: %w", err)
	}
	return nil
}

// AppDefaults returns the form values a fresh wizard session starts with.
func (c *Config) AppDefaults() domain.AppConfig {
	out := domain.DefaultAppConfig()
	if c == nil {
		return out
	}
	if c.Defaults.VersionName != "" {
		out.VersionName = c.Defaults.VersionName
	}
	if c.Defaults.VersionCode > 0 {
		out.VersionCode = c.Defaults.VersionCode
	}
	if o, err := domain.ParseOrientation(c.Defaults.Orientation); err == nil {
		out.Orientation = o
	}
	if c.Defaults.MinSdk >= domain.MinSdkFloor {
		out.MinSdk = c.Defaults.MinSdk
	}
	if c.Defaults.SplashColor != "" {
		out.SplashColor = c.Defaults.SplashColor
	}
	return out
}

// Timeout is the per-call transport timeout; zero means none.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Model.TimeoutSeconds) * time.Second
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "twa.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `model:
  # base_url: https://generativelanguage.googleapis.com/
  analyze: gemini-3-flash-preview
  generate: gemini-3-pro-preview
  timeout_seconds: 120

defaults:
  version_name: 1.0.0
  version_code: 1
  orientation: portrait
  min_sdk: 24
  splash_color: "#FFFFFF"

server:
  addr: 127.0.0.1:8080
  base_path: /v0
`
