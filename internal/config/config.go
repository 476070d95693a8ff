// Package config provides configuration loading from a YAML file, the OS
// keychain, and environment variables. Environment variables take precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

const (
	// KeychainService is the keychain service name for rawdelta secrets.
	KeychainService = "rawdelta"

	// KeyAPIToken is the keychain account holding the local API token.
	KeyAPIToken = "api-token"
)

// Capture backends.
const (
	BackendNative   = "native"
	BackendEmulator = "emulator"
)

// Defaults applied before any source is read.
const (
	DefaultAddr   = "127.0.0.1:7414"
	DefaultBuffer = 1024
)

// Config holds the full application configuration, assembled from YAML + keychain + env.
type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	Server  ServerConfig  `yaml:"server"`
	Export  ExportConfig  `yaml:"export"`
}

// CaptureConfig selects and sizes the raw input backend.
type CaptureConfig struct {
	Backend string `yaml:"backend"`
	Buffer  int    `yaml:"buffer"`
}

// ServerConfig holds the local command API settings.
type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Debug bool   `yaml:"debug,omitempty"`
	Token string `yaml:"-"` // secret, not in YAML
}

// ExportConfig points at the session database. Empty disables export.
type ExportConfig struct {
	Database string `yaml:"database"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "rawdelta")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	if p := os.Getenv("RAWDELTA_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultDatabasePath returns the SQLite file used when export is enabled
// without an explicit database.
func DefaultDatabasePath() string {
	return filepath.Join(DefaultConfigDir(), "sessions.db")
}

// Load assembles configuration from YAML file + keychain + environment variables.
// Environment variables always take precedence. A missing file or keychain
// entry is not an error.
func Load() (*Config, error) {
	cfg := &Config{
		Capture: CaptureConfig{Backend: BackendNative, Buffer: DefaultBuffer},
		Server:  ServerConfig{Addr: DefaultAddr},
	}

	// 1. YAML config file
	configPath := DefaultConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	}

	// 2. Keychain secrets (ignore errors, the keychain may not be populated)
	if token, err := keyring.Get(KeychainService, KeyAPIToken); err == nil {
		cfg.Server.Token = token
	}

	// 3. Environment variables override everything
	if v := os.Getenv("RAWDELTA_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("RAWDELTA_TOKEN"); v != "" {
		cfg.Server.Token = v
	}
	if v := os.Getenv("RAWDELTA_DB"); v != "" {
		cfg.Export.Database = v
	}
	if v := os.Getenv("RAWDELTA_BACKEND"); v != "" {
		cfg.Capture.Backend = v
	}
	if v := os.Getenv("RAWDELTA_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing RAWDELTA_BUFFER: %w", err)
		}
		cfg.Capture.Buffer = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.Capture.Backend {
	case BackendNative, BackendEmulator:
	default:
		return fmt.Errorf("unknown capture backend %q", c.Capture.Backend)
	}
	if c.Capture.Buffer <= 0 {
		return fmt.Errorf("capture buffer must be positive, got %d", c.Capture.Buffer)
	}
	return nil
}

// WriteConfigFile writes the non-secret portion of config to the YAML file.
func WriteConfigFile(cfg *Config) error {
	dir := filepath.Dir(DefaultConfigPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(DefaultConfigPath(), data, 0o644)
}

// SetKeychainSecret stores a secret in the OS keychain.
func SetKeychainSecret(account, value string) error {
	// Delete first to avoid "already exists" errors on update
	_ = keyring.Delete(KeychainService, account)
	return keyring.Set(KeychainService, account, value)
}

// GetKeychainSecret retrieves a secret from the OS keychain.
func GetKeychainSecret(account string) (string, error) {
	return keyring.Get(KeychainService, account)
}
