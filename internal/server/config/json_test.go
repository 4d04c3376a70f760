package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"http_addr":                            "www.example:9000",
		"database_driver":                      "sqlite",
		"database_dsn":                         "auth.db",
		"secret_key":                           "my_secret_key",
		"session_token_validity_duration":      "24h",
		"verification_token_validity_duration": "15m",
		"frontend_url":                         "https://app.example.com",
		"mail_provider":                        "ses",
		"smtp_port":                            2525,
		"notify_timeout":                       "10s",
	})

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		parseJson(cfg, []string{"-config", pathFlag})

		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, "sqlite", cfg.DatabaseDriver)
		assert.Equal(t, "auth.db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 24*time.Hour, cfg.SessionTokenValidityDuration)
		assert.Equal(t, 15*time.Minute, cfg.VerificationTokenValidityDuration)
		assert.Equal(t, "https://app.example.com", cfg.FrontendURL)
		assert.Equal(t, "ses", cfg.MailProvider)
		assert.Equal(t, 2525, cfg.SMTPPort)
		assert.Equal(t, 10*time.Second, cfg.NotifyTimeout)
	})

	t.Run("keys absent from the file keep their value", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, []string{"-c", pathFlag})

		assert.Equal(t, "http://localhost:5000", cfg.PublicBaseURL)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("file from AUTH_CONFIG", func(t *testing.T) {
		t.Setenv("AUTH_CONFIG", pathFlag)

		cfg := &Config{}
		parseJson(cfg, nil)
		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
	})

	t.Run("no config → no changes", func(t *testing.T) {
		cfg := &Config{HTTPAddr: "defaults:1234", SecretKey: "key"}
		parseJson(cfg, nil)

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, "key", cfg.SecretKey)
	})

	t.Run("missing file → panics", func(t *testing.T) {
		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg, []string{"-c", filepath.Join(dir, "nope.json")}) })
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg, []string{"-config", bad}) })
	})
}
