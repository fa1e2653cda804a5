package config_test

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roomservice/internal/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", "")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 0.7, cfg.Resolver.Threshold)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTimeout)
}

func TestLoad_Precedence(t *testing.T) {
	yamlPath := writeFile(t, "roomservice.yaml", `
log_level: debug
http:
  addr: ":9000"
  rate_limit: 10
backend:
  base_url: http://from-yaml:8000
session:
  idle_timeout: 90s
resolver:
  threshold: 0.8
`)
	envPath := writeFile(t, ".env", "API_BASE_URL=http://from-dotenv:8000\nNATS_URL=nats://from-dotenv:4222\n")

	t.Setenv("NATS_URL", "nats://from-env:4222")
	t.Setenv("ROOMSERVICE_RESOLVER_THRESHOLD", "0.6")
	t.Setenv("ROOMSERVICE_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Cleanup(func() { os.Unsetenv("API_BASE_URL") })

	cfg, err := config.Load(yamlPath, envPath)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, 10, cfg.HTTP.RateLimit)
	assert.Equal(t, 90*time.Second, cfg.Session.IdleTimeout)
	assert.Equal(t, "http://from-dotenv:8000", cfg.Backend.BaseURL, ".env overrides the file")
	assert.Equal(t, "nats://from-env:4222", cfg.NATS.URL, "real environment wins over .env")
	assert.Equal(t, 0.6, cfg.Resolver.Threshold)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
}

func TestLoad_PortShortcut(t *testing.T) {
	t.Setenv("PORT", "3000")
	cfg, err := config.Load("", "")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.HTTP.Addr)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
		assert.Error(t, err)
	})
	t.Run("missing env file is fine", func(t *testing.T) {
		_, err := config.Load("", filepath.Join(t.TempDir(), ".env"))
		assert.NoError(t, err)
	})
	t.Run("bad yaml", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "bad.yaml", "http: [unterminated"), "")
		assert.Error(t, err)
	})
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("ROOMSERVICE_IDLE_TIMEOUT", "soon")
		_, err := config.Load("", "")
		assert.ErrorContains(t, err, "ROOMSERVICE_IDLE_TIMEOUT")
	})
	t.Run("short encryption key", func(t *testing.T) {
		t.Setenv("ROOMSERVICE_SESSION_KEY", base64.StdEncoding.EncodeToString([]byte("too short")))
		_, err := config.Load("", "")
		assert.ErrorContains(t, err, "session.encryption_key")
	})
	t.Run("out of range", func(t *testing.T) {
		t.Setenv("ROOMSERVICE_RESOLVER_THRESHOLD", "1.5")
		t.Setenv("ROOMSERVICE_LOG_FORMAT", "xml")
		_, err := config.Load("", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "resolver.threshold")
		assert.Contains(t, err.Error(), "log_format")
	})
}

func TestSessionConfig_Keys(t *testing.T) {
	active := bytes.Repeat([]byte{1}, 32)
	old := bytes.Repeat([]byte{2}, 32)
	t.Setenv("ROOMSERVICE_SESSION_KEY", base64.StdEncoding.EncodeToString(active))
	t.Setenv("ROOMSERVICE_SESSION_FALLBACK_KEYS", base64.StdEncoding.EncodeToString(old))

	cfg, err := config.Load("", "")
	require.NoError(t, err)
	gotActive, gotFallback, err := cfg.Session.Keys()
	require.NoError(t, err)
	assert.Equal(t, active, gotActive)
	assert.Equal(t, [][]byte{old}, gotFallback)

	none, _, err := config.Default().Session.Keys()
	require.NoError(t, err)
	assert.Nil(t, none)
}
