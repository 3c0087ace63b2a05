package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if cfg.Listen.Addr != ":8080" {
		t.Errorf("default addr = %q", cfg.Listen.Addr)
	}
	if cfg.Keys.Bits != 2048 {
		t.Errorf("default bits = %d", cfg.Keys.Bits)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
listen:
  addr: "127.0.0.1:9999"
store:
  path: "/tmp/ib.db"
keys:
  dir: "/tmp/keys"
  server_passphrase: "from-file"
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Listen.Addr != "127.0.0.1:9999" {
		t.Errorf("addr = %q", cfg.Listen.Addr)
	}
	if cfg.Store.Path != "/tmp/ib.db" {
		t.Errorf("store path = %q", cfg.Store.Path)
	}
	if cfg.Keys.Dir != "/tmp/keys" {
		t.Errorf("keys dir = %q", cfg.Keys.Dir)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Keys.Bits != 2048 {
		t.Errorf("bits = %d, want default", cfg.Keys.Bits)
	}
	if cfg.Keys.ServerPassphrase != "from-file" {
		t.Errorf("server passphrase = %q", cfg.Keys.ServerPassphrase)
	}
}

func TestEnvPassphraseOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("keys:\n  server_passphrase: from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INDIEBACK_SERVER_PASSPHRASE", "from-env")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Keys.ServerPassphrase != "from-env" {
		t.Errorf("server passphrase = %q, want env value", cfg.Keys.ServerPassphrase)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Listen.Addr = "" }},
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
		{"empty keys dir", func(c *Config) { c.Keys.Dir = "" }},
		{"small key size", func(c *Config) { c.Keys.Bits = 1024 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted an invalid config")
			}
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}
