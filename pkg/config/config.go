/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the flightlog configuration
type Config struct {
	Server  Server  `yaml:"server"`
	Catalog Catalog `yaml:"catalog"`
	Parser  Parser  `yaml:"parser"`
	Logging Logging `yaml:"logging"`
	Output  Output  `yaml:"output"`
}

// Server contains HTTP API configuration
type Server struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
	// APIKey, when set, must be sent in the X-API-Key header of every
	// /api request.
	APIKey string `yaml:"api_key"`
}

// Catalog contains catalog database configuration
type Catalog struct {
	Dir string `yaml:"dir"`
	// AllowedRoots limits the files the API may load. Empty allows any path.
	AllowedRoots []string `yaml:"allowed_roots,omitempty"`
}

// Parser contains log decoding defaults
type Parser struct {
	MessageFilter []string `yaml:"message_filter,omitempty"`
	// Strict turns decoding warnings into command failures.
	Strict bool `yaml:"strict"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// Output contains CLI output configuration
type Output struct {
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: Server{
			Bind: "127.0.0.1",
			Port: 8080,
		},
		Catalog: Catalog{
			Dir: "./catalog",
		},
		Logging: Logging{
			Level: "info",
		},
		Output: Output{
			Format: "table",
		},
	}
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	switch c.Output.Format {
	case "table", "json":
	default:
		return fmt.Errorf("invalid output format: %q", c.Output.Format)
	}
	if c.Catalog.Dir == "" {
		return fmt.Errorf("catalog dir cannot be empty")
	}
	return nil
}

// LoadConfig loads configuration from the specified path. Missing fields
// keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a new default configuration with a generated API
// key to configPath.
func BootstrapConfig(configPath string, catalogDir string) (*Config, error) {
	config := DefaultConfig()
	if catalogDir != "" {
		config.Catalog.Dir = catalogDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./flightlog.yaml"
	}

	// For Linux/macOS, use ~/.config/flightlog/config.yaml
	return filepath.Join(homeDir, ".config", "flightlog", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
