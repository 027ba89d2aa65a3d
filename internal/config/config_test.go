package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

database:
  url: "postgres://sv:sv@localhost:5432/supplyvault?sslmode=disable"
  max_open_conns: 20

ses:
  region: "eu-west-1"
  from_email: "alerts@supplyvault.io"
  timeout_seconds: 45

cron:
  secret: "test-cron-secret"
  reverify_batch_size: 50

verification:
  gots_lookup_url: "https://global-standard.org/api/certificates"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "postgres://sv:sv@localhost:5432/supplyvault?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, "eu-west-1", cfg.SES.Region)
	assert.Equal(t, "alerts@supplyvault.io", cfg.SES.FromEmail)
	assert.Equal(t, 45, cfg.SES.TimeoutSeconds)
	assert.Equal(t, "test-cron-secret", cfg.Cron.Secret)
	assert.Equal(t, 50, cfg.Cron.ReverifyBatchSize)
	assert.Equal(t, "https://global-standard.org/api/certificates", cfg.Verification.GOTSLookupURL)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("server:\n  port: 0\n"), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, "us-east-1", cfg.SES.Region)
	assert.Equal(t, 100, cfg.Cron.ReverifyBatchSize)
	assert.Equal(t, 30, cfg.Cron.ReverifyIntervalDays)
	assert.Equal(t, 300, cfg.Cron.RunLockTTLSeconds)
	assert.InDelta(t, 0.6, cfg.Extraction.ConfidenceThreshold, 1e-9)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("cron:\n  secret: \"file-secret\"\n"), 0644)
	require.NoError(t, err)

	t.Setenv("CRON_SECRET", "env-secret")
	t.Setenv("DATABASE_URL", "postgres://env-override")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Cron.Secret)
	assert.Equal(t, "postgres://env-override", cfg.Database.URL)
}
