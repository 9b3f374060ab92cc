package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

const (
	configDirName = "docqa"
	defaultConfig = ".config"
)

var configFiles = []string{
	"config.yaml",
	"config.yml",
}

// Config represents the structure of the configuration file used by the application.
type Config struct {
	Server         string        `yaml:"server" env:"DOCQA_SERVER" default:"http://localhost:8000"`
	LogLevel       string        `yaml:"log_level" env:"DOCQA_LOG_LEVEL" default:"info"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"DOCQA_REQUEST_TIMEOUT" default:"60s"`
	Render         RenderConfig  `yaml:"render"`
	Summary        SummaryConfig `yaml:"summary"`
}

// RenderConfig controls how answers are printed.
type RenderConfig struct {
	// Format is "markdown" or "plain".
	Format string `yaml:"format" env:"DOCQA_RENDER" default:"markdown"`
	Wrap   int    `yaml:"wrap" default:"120"`
}

type SummaryConfig struct {
	MaxLength int `yaml:"max_length" default:"500"`
}

// configResult is a struct used to return the configuration and any error that occurs during loading.
type configResult struct {
	config *Config
	err    error
}

// NewDefaultConfig returns a configuration holding only default values.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		// Only reachable with a broken default tag.
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Validate reports settings the client cannot work with.
func (c *Config) Validate() error {
	if c.Server == "" {
		return errors.New("server must not be empty")
	}
	if c.Render.Format != "markdown" && c.Render.Format != "plain" {
		return fmt.Errorf("render format %q must be markdown or plain", c.Render.Format)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout %s must be positive", c.RequestTimeout)
	}
	return nil
}

// getConfigPath retrieves the path to the configuration directory based on the XDG_CONFIG_HOME environment variable.
func getConfigPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configHome = filepath.Join(home, defaultConfig)
	}

	return filepath.Join(configHome, configDirName), nil
}

// tryLoadConfig attempts to load a configuration file from the specified path.
func tryLoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadConfig loads the configuration from the user's config directory, with a
// timeout, then applies DOCQA_* environment overrides.
func LoadConfig(ctx context.Context) (*Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result := make(chan configResult, 1)

	go func() {
		cfg, err := loadConfigFiles(ctx)
		result <- configResult{config: cfg, err: err}
	}()

	var cfg *Config
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-result:
		if r.err != nil {
			return nil, r.err
		}
		cfg = r.config
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadConfigFiles loads configuration files from the user's config directory.
func loadConfigFiles(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error before loading config: %w", err)
	}

	configDir, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	// Return default config early if directory doesn't exist
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return NewDefaultConfig(), nil
	}

	for _, filename := range configFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg, err := tryLoadConfig(filepath.Join(configDir, filename))
		if err == nil {
			return cfg, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config from %s: %w", filename, err)
		}
	}

	return NewDefaultConfig(), nil
}
