package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Store    Store    `yaml:"store"`
	Engine   Engine   `yaml:"engine"`
	Producer Producer `yaml:"producer"`
	Sources  Sources  `yaml:"sources"`
	Server   Server   `yaml:"server"`
	Taxonomy Taxonomy `yaml:"taxonomy"`
}

type Store struct {
	Path string `yaml:"path"`
}

type Engine struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	WindowDays          int     `yaml:"window_days"`
	WindowRows          int     `yaml:"window_rows"`
	RetentionDays       int     `yaml:"retention_days"`
	OnStoreError        string  `yaml:"on_store_error"` // fail_open | fail_closed | retry
	DefaultBlockHours   int     `yaml:"default_block_hours"`
}

type Producer struct {
	MaxAttempts int      `yaml:"max_attempts"`
	ContentType string   `yaml:"content_type"`
	Fallbacks   []string `yaml:"fallbacks"`
}

type Sources struct {
	Feeds []Feed `yaml:"feeds"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Taxonomy struct {
	Path string `yaml:"path"`
}

// ConfigDir returns the XDG config directory for contentguard.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "contentguard")
}

// DataDir returns the XDG data directory for contentguard.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "contentguard")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/contentguard/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'contentguard init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Engine: Engine{
			SimilarityThreshold: 0.7,
			WindowDays:          30,
			WindowRows:          100,
			RetentionDays:       90,
			OnStoreError:        "fail_open",
			DefaultBlockHours:   4,
		},
		Producer: Producer{
			MaxAttempts: 12,
			ContentType: "news",
		},
		Server: Server{Port: 8600},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.SimilarityThreshold <= 0 || c.Engine.SimilarityThreshold >= 1 {
		return fmt.Errorf("similarity_threshold must be in (0, 1), got %v", c.Engine.SimilarityThreshold)
	}
	switch c.Engine.OnStoreError {
	case "fail_open", "fail_closed", "retry":
	default:
		return fmt.Errorf("on_store_error must be fail_open, fail_closed or retry, got %q", c.Engine.OnStoreError)
	}
	return nil
}

// StorePath returns the effective database path from config or XDG default.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(DataDir(), "contentguard.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
