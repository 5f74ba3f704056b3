// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable that points at the config file.
const EnvVar = "RIGLINK_CONFIG"

// Config is the full configuration for a riglink tool.
type Config struct {
	// Identity describes how the tool presents itself to the backend
	// when registering for control.
	Identity IdentityConfig `yaml:"identity"`

	// Control lists the control categories to request: any of "ffb",
	// "telemetry", "sim_data". Empty means monitor-only.
	Control []string `yaml:"control"`

	// Security configures the optional secure session.
	Security SecurityConfig `yaml:"security"`

	// SHMDir overrides the shared-memory directory. Empty uses the
	// platform default. Only useful against a backend simulator.
	SHMDir string `yaml:"shm_dir"`
}

// IdentityConfig is the registration identity.
type IdentityConfig struct {
	// ID is the machine-readable registration id (max 64 bytes).
	ID string `yaml:"id"`

	// DisplayName is shown in the backend's client list.
	DisplayName string `yaml:"display_name"`

	// Author and Version are optional metadata forwarded verbatim.
	Author  string `yaml:"author"`
	Version string `yaml:"version"`
}

// SecurityConfig configures the secure-session handshake.
type SecurityConfig struct {
	// Enabled requests an encrypted action channel. Requires the key
	// files below.
	Enabled bool `yaml:"enabled"`

	// PrivateKeyFile and PublicKeyFile hold the client's raw 32-byte
	// X25519 keys.
	PrivateKeyFile string `yaml:"private_key_file"`
	PublicKeyFile  string `yaml:"public_key_file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Identity: IdentityConfig{
			ID:          "riglink-tool",
			DisplayName: "Riglink tool",
		},
	}
}

// Load reads the config file at path. An empty path falls back to the
// RIGLINK_CONFIG environment variable, and if that is unset too, to
// Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Identity.ID) > 64 {
		return fmt.Errorf("identity.id is %d bytes, max 64", len(c.Identity.ID))
	}
	for _, name := range c.Control {
		switch name {
		case "ffb", "telemetry", "sim_data":
		default:
			return fmt.Errorf("unknown control category %q", name)
		}
	}
	if c.Security.Enabled {
		if c.Security.PrivateKeyFile == "" || c.Security.PublicKeyFile == "" {
			return fmt.Errorf("security.enabled requires both key files")
		}
	}
	return nil
}
