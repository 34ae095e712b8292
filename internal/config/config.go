package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

//go:embed default/config.yaml
var defaultConfigData []byte

// Config holds the tinysh configuration.
type Config struct {
	Prompt     PromptConfig  `yaml:"prompt"`
	History    HistoryConfig `yaml:"history"`
	NullDevice string        `yaml:"null_device" validate:"required"`
	Verbose    bool          `yaml:"verbose"`
}

// PromptConfig controls the interactive prompt.
type PromptConfig struct {
	Enabled bool   `yaml:"enabled"`
	Color   bool   `yaml:"color"`
	Symbol  string `yaml:"symbol" validate:"required,max=8"`
}

// HistoryConfig controls the history log of executed lines.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})
	return validate.Struct(c)
}

// DefaultConfig returns the built-in configuration with ~ expanded.
func DefaultConfig() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfigData, &cfg); err != nil {
		panic(err)
	}
	cfg.expandHome()
	return &cfg
}

// Path returns the standard config file path (~/.config/tinysh/config.yaml).
func Path() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tinysh", "config.yaml")
}

// Load reads the config from the standard location on the OS filesystem.
// If the file doesn't exist, returns the default config.
func Load() (*Config, error) {
	return LoadFrom(afero.NewOsFs(), Path())
}

// LoadFrom reads the config from path on fsys, layering it over the
// defaults.
func LoadFrom(fsys afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.expandHome()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) expandHome() {
	if c.History.Path != "" && c.History.Path[0] == '~' {
		home, _ := os.UserHomeDir()
		c.History.Path = filepath.Join(home, c.History.Path[1:])
	}
}
