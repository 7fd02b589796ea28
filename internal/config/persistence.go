// file: internal/config/persistence.go
// version: 2.0.0
// guid: 6f1a7a6d-dc4e-4e30-a33d-a31a28ef545a

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile returns $HOME/.album-enricher.yaml.
func DefaultConfigFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".album-enricher.yaml"), nil
}

// redacted returns a copy of c safe to print.
func (c Config) redacted() Config {
	if c.Lastfm.APIKey != "" {
		c.Lastfm.APIKey = "********"
	}
	return c
}

// Marshal renders the configuration as YAML. Secrets are masked unless
// includeSecrets is set.
func (c Config) Marshal(includeSecrets bool) ([]byte, error) {
	if !includeSecrets {
		c = c.redacted()
	}
	return yaml.Marshal(c)
}

// SaveConfigToFile writes the configuration to path as YAML.
// The file may contain the API key so it is written with restrictive permissions.
func SaveConfigToFile(c Config, path string) error {
	if path == "" {
		return fmt.Errorf("cannot determine config file path")
	}

	data, err := c.Marshal(true)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
