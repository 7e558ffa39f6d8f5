package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TOKEN_HMAC_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ComponentBancho, cfg.Component)
	assert.Equal(t, "s3cret", cfg.TokenHMACSecret)
	assert.Equal(t, 3000, cfg.Port)
}

func TestLoadRequiresSecret(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"component: web\nserver_url: osu.file.local\ntoken_hmac_secret: from-file\nport: 8080\n",
	), 0o644))

	t.Setenv("APP_COMPONENT", "cleanup")
	t.Setenv("PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ComponentCleanup, cfg.Component)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "osu.file.local", cfg.ServerURL)
	assert.Equal(t, "from-file", cfg.TokenHMACSecret)
}

func TestBanchoURL(t *testing.T) {
	cfg := Default()
	cfg.ServerURL = "osu.example.com"
	assert.Equal(t, "https://c.osu.example.com", cfg.BanchoURL())
}
