package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("loads a complete configuration", func(t *testing.T) {
		path := writeConfig(t, `
lengo:
  site_id: "site-1"
  api_key: "key-1"
webhook:
  secret: "hook-secret"
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "site-1", cfg.Lengo.SiteID)
		assert.Equal(t, "hook-secret", cfg.Webhook.Secret)
		// Defaults fill the rest.
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "/payment-webhook", cfg.Webhook.Path)
		assert.NotEmpty(t, cfg.Lengo.APIURL)
	})

	t.Run("rejects a configuration without an API key", func(t *testing.T) {
		path := writeConfig(t, `
lengo:
  site_id: "site-1"
webhook:
  secret: "hook-secret"
`)

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lengo.api_key")
	})

	t.Run("rejects a configuration without a webhook secret", func(t *testing.T) {
		path := writeConfig(t, `
lengo:
  site_id: "site-1"
  api_key: "key-1"
`)

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "webhook.secret")
	})
}
