package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigRequiresLocalKey(t *testing.T) {
	t.Setenv("QUIP_LOCAL_KEY", "")

	_, err := LoadConfig("")
	require.Error(t, err)
}

func TestLoadConfigDefaultsAndSecrets(t *testing.T) {
	t.Setenv("QUIP_LOCAL_KEY", "k")
	t.Setenv("QUIP_OPENAI_KEY", "sk")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", config.ListenAddr)
	assert.Equal(t, 2, config.RetentionDays)
	assert.Equal(t, "k", config.LocalKey)
	assert.Equal(t, "sk", config.OpenAIKey)
	assert.Equal(t, "21m00Tcm4TlvDq8ikWAM", config.Speech.VoiceID)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("QUIP_LOCAL_KEY", "k")

	path := filepath.Join(t.TempDir(), "quipd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr = ":6061"
retention_days = 7
upstream_timeout = "90s"

[chat]
model = "gpt-4o-mini"
`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":6061", config.ListenAddr)
	assert.Equal(t, 7, config.RetentionDays)
	assert.Equal(t, 90*time.Second, config.UpstreamTimeout.Duration)
	assert.Equal(t, "gpt-4o-mini", config.Chat.Model)
	// Untouched sections keep defaults.
	assert.Equal(t, "https://api.elevenlabs.io", config.Speech.URL)
}
