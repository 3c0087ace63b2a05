// Package config loads the server configuration from YAML with
// sensible defaults for every field.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/indiepub/indieback/authkey"
)

// Config is the full server configuration.
type Config struct {
	Listen ListenConfig `yaml:"listen"`
	Store  StoreConfig  `yaml:"store"`
	Keys   KeysConfig   `yaml:"keys"`
}

// ListenConfig configures the HTTP listener.
type ListenConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig configures the bolt database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// KeysConfig configures the RSA identity key pairs.
type KeysConfig struct {
	Dir  string `yaml:"dir"`
	Bits int    `yaml:"bits"`

	// Passphrases unseal the private keys. They may also be supplied
	// via INDIEBACK_SERVER_PASSPHRASE / INDIEBACK_CLIENT_PASSPHRASE,
	// which take precedence over the file.
	ServerPassphrase string `yaml:"server_passphrase"`
	ClientPassphrase string `yaml:"client_passphrase"`
}

// DefaultConfig returns a configuration with every field set to its
// default.
func DefaultConfig() *Config {
	return &Config{
		Listen: ListenConfig{Addr: ":8080"},
		Store:  StoreConfig{Path: "indieback.db"},
		Keys: KeysConfig{
			Dir:  authkey.DefaultDir(),
			Bits: authkey.DefaultBits,
		},
	}
}

// LoadFromFile reads path over the defaults. Fields absent from the
// file keep their default values. Environment passphrase overrides are
// applied last.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("INDIEBACK_SERVER_PASSPHRASE"); v != "" {
		c.Keys.ServerPassphrase = v
	}
	if v := os.Getenv("INDIEBACK_CLIENT_PASSPHRASE"); v != "" {
		c.Keys.ClientPassphrase = v
	}
}

// Validate checks the configuration for values the server cannot run
// with.
func (c *Config) Validate() error {
	if c.Listen.Addr == "" {
		return fmt.Errorf("listen.addr is required")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Keys.Dir == "" {
		return fmt.Errorf("keys.dir is required")
	}
	if c.Keys.Bits < 2048 {
		return fmt.Errorf("keys.bits must be at least 2048, got %d", c.Keys.Bits)
	}
	return nil
}
