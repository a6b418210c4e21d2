// Package config loads filevault settings. Values are layered: built-in
// defaults, then the YAML file, then environment variables. Command-line
// flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v2"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/logging"
	"github.com/illarion/filevault/internal/shred"
	"github.com/illarion/filevault/internal/versionstore"
)

// Environment variables
const (
	EnvStore    = "FILEVAULT_STORE"
	EnvLogLevel = "FILEVAULT_LOG_LEVEL"
	EnvConfig   = "FILEVAULT_CONFIG"
	EnvPassword = "FILEVAULT_PASSWORD"
	EnvRetries  = "FILEVAULT_IO_RETRIES"
)

// KDF holds the cost parameters for new credentials
type KDF struct {
	Memory  uint32 `yaml:"memory"` // KiB
	Time    uint32 `yaml:"time"`
	Threads uint8  `yaml:"threads"`
}

// Shred holds the shredding settings
type Shred struct {
	Passes  []string `yaml:"passes"`
	Enabled bool     `yaml:"enabled"` // shred sources after encrypt by default
}

// Config is the resolved configuration
type Config struct {
	Store       string `yaml:"store"`
	LogLevel    string `yaml:"log_level"`
	Cipher      string `yaml:"cipher"`
	Compression string `yaml:"compression"`
	KDF         KDF    `yaml:"kdf"`
	Shred       Shred  `yaml:"shred"`
	IORetries   uint64 `yaml:"io_retries"`
	Keyring     bool   `yaml:"keyring"`
}

// Default returns the built-in configuration
func Default() Config {
	home, _ := os.UserHomeDir()
	defaults := crypto.DefaultKDFParams()
	return Config{
		Store:       filepath.Join(home, ".filevault", "vault.db"),
		LogLevel:    "warn",
		Cipher:      string(crypto.AES256GCM),
		Compression: string(versionstore.CompressionNone),
		KDF: KDF{
			Memory:  defaults.Memory,
			Time:    defaults.Time,
			Threads: defaults.Threads,
		},
		Shred: Shred{
			Passes:  []string{string(shred.Random), string(shred.Zeros), string(shred.Random)},
			Enabled: true,
		},
		IORetries: 3,
		Keyring:   true,
	}
}

// DefaultPath returns the config file location used when none is given
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".filevault", "config.yaml")
}

// Load resolves the configuration. A missing file at the default location is
// not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvStore); v != "" {
		c.Store = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvRetries); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRetries, err)
		}
		c.IORetries = n
	}
	return nil
}

// Validate checks every enumerated setting
func (c *Config) Validate() error {
	if c.Store == "" {
		return errors.New("store path is empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := crypto.ParseCipherSuite(c.Cipher); err != nil {
		return err
	}
	if _, err := versionstore.ParseCompression(c.Compression); err != nil {
		return err
	}
	if _, err := shred.ParsePasses(c.Shred.Passes); err != nil {
		return err
	}
	return c.KDFParams().Validate()
}

// KDFParams returns the Argon2id parameters for new credentials
func (c *Config) KDFParams() crypto.KDFParams {
	return crypto.KDFParams{
		Algorithm: crypto.KDFArgon2id,
		Memory:    c.KDF.Memory,
		Time:      c.KDF.Time,
		Threads:   c.KDF.Threads,
	}
}
