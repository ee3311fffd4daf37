package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "gemini-3-flash-preview", cfg.GenAIModel)
	assert.Equal(t, 60*time.Second, cfg.GenAITimeout)
	assert.Equal(t, ":memory:", cfg.StorePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.GenAIAPIKey)
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv("MARA_GENAI_MODEL", "gemini-3-pro")
	t.Setenv("MARA_GENAI_TIMEOUT", "15s")
	t.Setenv("MARA_STORE_PATH", "/tmp/mara-test.db")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-pro", cfg.GenAIModel)
	assert.Equal(t, 15*time.Second, cfg.GenAITimeout)
	assert.Equal(t, "/tmp/mara-test.db", cfg.StorePath)
	assert.Equal(t, "info", cfg.LogLevel)
}
