package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the gsl CLI configuration.
type Config struct {
	// DevicePath is the serial endpoint of the watch, e.g. /dev/ttyACM0.
	DevicePath string `yaml:"device_path" json:"device_path"`

	// SessionToken is the apps.garmin.com session cookie value used for
	// authenticated store endpoints. Any account works.
	SessionToken string `yaml:"session_token" json:"session_token"`

	// OutputFormat selects the CLI output format: table, json or yaml.
	OutputFormat string `yaml:"output_format" json:"output_format"`
}

// DefaultPath returns the default config file path: ~/.gsl/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".gsl", "config.yaml")
	}
	return filepath.Join(home, ".gsl", "config.yaml")
}

// Load reads the configuration from the given YAML file path.
// If the file does not exist, it returns a default Config with no error.
func Load(path string) (*Config, error) {
	cfg := &Config{
		OutputFormat: "table",
	}

	// Warn if the config file is world-readable, since it may contain a
	// session token.
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		fmt.Fprintf(os.Stderr,
			"warning: config file %s has permissions %04o — expected 0600. "+
				"Session tokens may be exposed to other users.\n",
			path, perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
