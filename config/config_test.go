package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aidenzou-az/polymarket-mm/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_AppliesDefaultsAndEnv(t *testing.T) {
	t.Setenv("POLY_API_KEY", "key")
	t.Setenv("POLY_API_SECRET", "secret")
	t.Setenv("POLY_API_PASSPHRASE", "pass")
	t.Setenv("POLY_WALLET_ADDRESS", "0xabc")
	t.Setenv("LOG_LEVEL", "debug")

	path := writeYAML(t, "registry:\n  path: markets.yaml\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "markets.yaml", cfg.Registry.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "default", cfg.Strategy.DefaultProfile)
	assert.Equal(t, "riskoff.db", cfg.RiskOff.DSN)
	assert.Equal(t, "key", cfg.Credentials.APIKey)
	assert.Equal(t, "0xabc", cfg.Credentials.Address)
	assert.NotEmpty(t, cfg.Endpoints.CLOBRestBase)
}

func TestLoad_MissingCredentialsFails(t *testing.T) {
	path := writeYAML(t, "registry:\n  path: markets.yaml\n")
	_, err := config.Load(path)
	assert.Error(t, err)
}
