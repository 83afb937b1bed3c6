package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesFileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 9000
  request_timeout: 2s
  allowed_origins: ["https://app.example.com"]
artifacts:
  model: /srv/model.json
logging:
  format: json
`)

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, 2*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, int64(1<<20), cfg.HTTP.MaxBodyBytes)
	assert.Equal(t, "/srv/model.json", cfg.Artifacts.Model)
	assert.Equal(t, "artifacts/label_encoder.yaml", cfg.Artifacts.Encoder)
	assert.Equal(t, 1024, cfg.Cache.Size)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "http:\n  port: 9000\n")
	t.Setenv("CREDITRISK_HTTP_PORT", "9100")
	t.Setenv("CREDITRISK_CACHE_SIZE", "0")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.HTTP.Port)
	assert.Equal(t, 0, cfg.Cache.Size)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"port":      "http:\n  port: 70000\n",
		"format":    "logging:\n  format: xml\n",
		"cache":     "cache:\n  size: -1\n",
		"database":  "database:\n  enabled: true\n  path: \"\"\n",
		"artifacts": "artifacts:\n  scaler: \"\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, content)).Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	assert.Error(t, err)
}
