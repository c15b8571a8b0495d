// Package config loads the mpy CLI configuration file: default connection
// settings plus named aliases for serial ports.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models the ~/.mpy.yaml file.
type Config struct {
	DefaultPort    string            `yaml:"defaultPort"`
	BaudRate       int               `yaml:"baudRate"`
	TimeoutSeconds int               `yaml:"timeoutSeconds"`
	Ports          map[string]string `yaml:"ports"`
}

// DefaultConfigPath returns ~/.mpy.yaml, or just the file name when the home
// directory cannot be determined.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mpy.yaml"
	}

	return filepath.Join(home, ".mpy.yaml")
}

// Load decodes the config file. A missing file returns (nil, nil).
func Load(path string) (*Config, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}

	expanded, err := expandPath(trimmed)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// ResolvePort maps an alias to its device path. Unknown names pass through
// unchanged, and an empty name falls back to the configured default port.
func (c *Config) ResolvePort(name string) string {
	if c == nil {
		return name
	}
	if name == "" {
		name = c.DefaultPort
	}
	if path, ok := c.Ports[name]; ok {
		return path
	}

	return name
}

func expandPath(path string) (string, error) {
	switch {
	case strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	case path == "~":
		return os.UserHomeDir()
	default:
		return path, nil
	}
}
