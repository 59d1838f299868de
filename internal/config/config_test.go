package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"ENVIRONMENT", "XERO_MCP_LOG_LEVEL", "XERO_CLIENT_ID", "XERO_CLIENT_SECRET",
		"XERO_TOKEN_STORE", "XERO_MCP_STATE_DIR", "XERO_DEFAULT_PROFILE", "XERO_PROFILES_FILE",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, StoreAuto, cfg.TokenStore)
	assert.Equal(t, "SP", cfg.DefaultProfile)
	assert.Empty(t, cfg.ClientID)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("XERO_TOKEN_STORE", "file")
	t.Setenv("XERO_DEFAULT_PROFILE", "SM")
	t.Setenv("XERO_CLIENT_ID", "env-id")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, StoreFile, cfg.TokenStore)
	assert.Equal(t, "SM", cfg.DefaultProfile)
	assert.Equal(t, "env-id", cfg.ClientID)
}

func TestLoadRejectsBadTokenStore(t *testing.T) {
	clearEnv(t)
	t.Setenv("XERO_TOKEN_STORE", "redis")

	_, err := Load()
	assert.ErrorContains(t, err, "XERO_TOKEN_STORE")
}

func TestTokenDBPath(t *testing.T) {
	clearEnv(t)

	stateDir := t.TempDir()
	t.Setenv("XERO_MCP_STATE_DIR", stateDir)

	cfg, err := Load()
	require.NoError(t, err)

	path, err := cfg.TokenDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(stateDir, "tokens.db"), path)

	cfg.StateDir = ""
	path, err = cfg.TokenDBPath()
	require.NoError(t, err)
	assert.Contains(t, path, filepath.Join(".xero-mcp", "tokens.db"))
}

func TestProfilesBuiltin(t *testing.T) {
	clearEnv(t)
	t.Setenv("XERO_DEFAULT_PROFILE", "SM")

	cfg, err := Load()
	require.NoError(t, err)

	registry, err := cfg.Profiles()
	require.NoError(t, err)

	assert.Equal(t, []string{"SP", "SM"}, registry.Names())
	assert.Equal(t, "SM", registry.Active().Name)
}

func TestProfilesFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - name: AA
    keychain_prefix: Alpha
  - name: BB
default: BB
`), 0o600))

	t.Setenv("XERO_PROFILES_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	registry, err := cfg.Profiles()
	require.NoError(t, err)

	assert.Equal(t, []string{"AA", "BB"}, registry.Names())
	assert.Equal(t, "BB", registry.Active().Name)

	p, ok := registry.Get("AA")
	require.True(t, ok)
	assert.Equal(t, "Alpha", p.KeychainPrefix)
}

func TestProfilesFileFallbackDefault(t *testing.T) {
	clearEnv(t)

	// File without a default and an env default naming a built-in that
	// the file does not contain: first file profile wins.
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - name: AA
`), 0o600))

	t.Setenv("XERO_PROFILES_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	registry, err := cfg.Profiles()
	require.NoError(t, err)
	assert.Equal(t, "AA", registry.Active().Name)
}

func TestProfilesFileMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("XERO_PROFILES_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	_, err = cfg.Profiles()
	assert.Error(t, err)
}
