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
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "Aria", cfg.Agent.Name)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.True(t, cfg.Heartbeat.Enabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9090,
		"agent": {"name": "Melody"},
		"knowledge": {"base_url": "http://catalog:3001", "timeout_seconds": 2},
		"ai": {"provider": "echo"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "Melody", cfg.Agent.Name)
	assert.Equal(t, "http://catalog:3001", cfg.Knowledge.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.KnowledgeTimeout())
	assert.Equal(t, "echo", cfg.AI.Provider)
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_TUNETALK_KEY", "sk-test-123")
	path := writeConfig(t, `{
		"knowledge": {"base_url": "http://localhost:3001"},
		"ai": {"provider": "openai", "api_key": "${TEST_TUNETALK_KEY}"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", cfg.AI.APIKey)
}

func TestLoadUnsetEnvVarExpandsEmpty(t *testing.T) {
	path := writeConfig(t, `{
		"knowledge": {"base_url": "http://localhost:3001"},
		"ai": {"api_key": "${TEST_TUNETALK_DEFINITELY_UNSET}"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.AI.APIKey)
}

func TestLoadInvalidJSONFails(t *testing.T) {
	path := writeConfig(t, `{not json`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadInvalidPortFails(t *testing.T) {
	path := writeConfig(t, `{"port": -1}`)
	_, err := Load(path)
	assert.Error(t, err)
}
