// Package config loads the server's environment-based configuration and
// the optional profiles file.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alexjbarnes/xero-mcp/internal/profile"
)

// Token store backend selections.
const (
	StoreAuto     = "auto"
	StoreFile     = "file"
	StoreKeychain = "keychain"
)

// Config holds all environment-based configuration for xero-mcp.
type Config struct {
	// Environment controls log format
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// LogLevel overrides the default level (debug in development, info
	// in production).
	LogLevel string `env:"XERO_MCP_LOG_LEVEL"`

	// Fallback Xero app credentials, used when the secret store has no
	// entry for a profile. Single-profile deployments can run on these
	// alone.
	ClientID     string `env:"XERO_CLIENT_ID"`
	ClientSecret string `env:"XERO_CLIENT_SECRET"`

	// TokenStore selects where tokens persist: auto (keychain when the
	// platform has one, else file), file, or keychain.
	TokenStore string `env:"XERO_TOKEN_STORE" envDefault:"auto"`

	// StateDir overrides the default ~/.xero-mcp state directory that
	// holds the file-backed token database.
	StateDir string `env:"XERO_MCP_STATE_DIR"`

	// DefaultProfile is the profile active at startup.
	DefaultProfile string `env:"XERO_DEFAULT_PROFILE" envDefault:"SP"`

	// ProfilesFile points at an optional YAML profile definition file.
	// When empty the built-in SP/SM profiles are used.
	ProfilesFile string `env:"XERO_PROFILES_FILE"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if cfg.StateDir != "" {
		absDir, err := filepath.Abs(cfg.StateDir)
		if err != nil {
			return nil, fmt.Errorf("resolving state dir to absolute path: %w", err)
		}

		cfg.StateDir = absDir
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.TokenStore {
	case StoreAuto, StoreFile, StoreKeychain:
	default:
		return fmt.Errorf("XERO_TOKEN_STORE must be auto, file, or keychain, got %q", c.TokenStore)
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// TokenDBPath returns the path of the file-backed token database,
// honouring StateDir when set.
func (c *Config) TokenDBPath() (string, error) {
	if c.StateDir != "" {
		return filepath.Join(c.StateDir, "tokens.db"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".xero-mcp", "tokens.db"), nil
}

// profilesFile is the YAML shape of a profiles file.
type profilesFile struct {
	Profiles []profile.Profile `yaml:"profiles"`
	Default  string            `yaml:"default"`
}

// Profiles loads the profile set. With no ProfilesFile configured, the
// built-in profiles are used with DefaultProfile active.
func (c *Config) Profiles() (*profile.Registry, error) {
	if c.ProfilesFile == "" {
		return profile.NewRegistry(profile.DefaultProfiles(), c.DefaultProfile)
	}

	data, err := os.ReadFile(c.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("reading profiles file: %w", err)
	}

	var pf profilesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing profiles file: %w", err)
	}

	defaultActive := pf.Default
	if defaultActive == "" {
		defaultActive = c.DefaultProfile
	}

	// An env default naming a profile absent from the file falls back
	// to the file's first profile.
	registry, err := profile.NewRegistry(pf.Profiles, defaultActive)
	if err != nil && len(pf.Profiles) > 0 && pf.Default == "" {
		return profile.NewRegistry(pf.Profiles, "")
	}

	return registry, err
}
