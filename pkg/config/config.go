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

// Config represents the fwumeta configuration
type Config struct {
	StoreDir string   `yaml:"store_dir"`
	Defaults Defaults `yaml:"defaults"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

// Defaults are the generator settings used when the matching flag is not set
type Defaults struct {
	Version       uint32 `yaml:"version"`
	NumBanks      int    `yaml:"num_banks"`
	ImagesPerBank int    `yaml:"images_per_bank"`
}

// Server contains the inspection API settings
type Server struct {
	Port   int    `yaml:"port"`
	Bind   string `yaml:"bind"`
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

var logLevels = map[string]int{
	"error": 0,
	"warn":  0,
	"info":  0,
	"debug": 2,
	"trace": 4,
}

// Verbosity maps the configured level to a klog verbosity.
func (l Logging) Verbosity() int {
	return logLevels[l.Level]
}

// Threshold is the lowest klog severity written for the configured level:
// ERROR, WARNING or INFO.
func (l Logging) Threshold() string {
	switch l.Level {
	case "error":
		return "ERROR"
	case "warn":
		return "WARNING"
	default:
		return "INFO"
	}
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		StoreDir: "./fwu-store",
		Defaults: Defaults{
			Version:       2,
			NumBanks:      2,
			ImagesPerBank: 1,
		},
		Server: Server{
			Port: 8080,
			Bind: "127.0.0.1",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Validate checks field ranges
func (c *Config) Validate() error {
	if c.Defaults.Version != 2 {
		return fmt.Errorf("defaults.version must be 2, got %d", c.Defaults.Version)
	}
	if c.Defaults.NumBanks < 1 || c.Defaults.NumBanks > 4 {
		return fmt.Errorf("defaults.num_banks must be in [1,4], got %d", c.Defaults.NumBanks)
	}
	if c.Defaults.ImagesPerBank < 1 || c.Defaults.ImagesPerBank > 0xFFFF {
		return fmt.Errorf("defaults.images_per_bank must be in [1,65535], got %d", c.Defaults.ImagesPerBank)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if _, ok := logLevels[c.Logging.Level]; !ok {
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	return nil
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their defaults.
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

// BootstrapConfig writes a default configuration with a generated API key
func BootstrapConfig(configPath string, storeDir string) (*Config, error) {
	config := DefaultConfig()
	if storeDir != "" {
		config.StoreDir = storeDir
	}

	apiKey, err := GenerateSecureKey(32)
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
		return "./fwumeta.yaml"
	}

	configDir := filepath.Join(homeDir, ".config", "fwumeta")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
