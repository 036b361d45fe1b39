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

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
upstream:
  api_key: test-key
  model: mammouth-large
  timeout: 45s
memory:
  enabled: true
  max_messages: 10
  timeout_hours: 4
entities:
  domains: [light, sensor]
  exclude_areas: [garage]
  max_entities: 25
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Upstream.APIKey)
	assert.Equal(t, "mammouth-large", cfg.Upstream.Model)
	assert.Equal(t, 45*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 10, cfg.Memory.MaxMessages)
	assert.Equal(t, 4*time.Hour, cfg.Memory.Timeout())
	assert.Equal(t, []string{"light", "sensor"}, cfg.Entities.Domains)
	assert.Equal(t, []string{"garage"}, cfg.Entities.ExcludeAreas)

	// Defaults fill in what the file omits.
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.True(t, cfg.Prompt.ComposeContext)
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	t.Setenv("MEMGATE_TEST_KEY", "from-env")
	path := writeConfig(t, `
upstream:
  api_key: ${MEMGATE_TEST_KEY}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Upstream.APIKey)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.Upstream.APIKey = "k"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing api key", func(c *Config) { c.Upstream.APIKey = "" }, "api_key"},
		{"zero max messages", func(c *Config) { c.Memory.MaxMessages = 0 }, "max_messages"},
		{"zero timeout hours", func(c *Config) { c.Memory.TimeoutHours = 0 }, "timeout_hours"},
		{"zero max entities", func(c *Config) { c.Entities.MaxEntities = 0 }, "max_entities"},
		{"bad backend", func(c *Config) { c.Store.Backend = "dynamo" }, "store backend"},
		{"bad port", func(c *Config) { c.Server.Port = -1 }, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig_IsInvalidWithoutKey(t *testing.T) {
	// An API key has no sane default; a bare default config must not validate.
	assert.Error(t, DefaultConfig().Validate())
}
