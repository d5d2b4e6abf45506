// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "panelforge", cfg.Logger.ServiceName)
	assert.Equal(t, 65536, cfg.Validator.MaxSourceBytes)
	assert.Contains(t, cfg.Validator.AllowedImports, "react")
	assert.Equal(t, "es2020", cfg.Compiler.Target)
	assert.Equal(t, ProviderGemini, cfg.Generation.LLM.Provider)
	assert.Equal(t, 25*time.Second, cfg.Generation.RequestTimeout)
	assert.Equal(t, 10, cfg.Generation.HistoryLimit)
	assert.Equal(t, "127.0.0.1:8775", cfg.Server.ListenAddr)
	assert.Empty(t, cfg.Generation.LLM.APIKey, "the key never has a baked-in default")
}

func TestNewConfigFromViper_OverridesDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("validator.max_lines", 100)
	v.Set("generation.rate_limit", 2.5)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Validator.MaxLines)
	assert.Equal(t, 2.5, cfg.Generation.RateLimit)
	// Untouched sections keep their defaults.
	assert.Equal(t, 64, cfg.Hotswap.EventBuffer)
}

func TestNewConfigFromViper_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv("PANELFORGE_LLM_API_KEY", "secret-from-env")

	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "secret-from-env", cfg.Generation.LLM.APIKey)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative min source bytes", func(c *Config) { c.Validator.MinSourceBytes = -1 }},
		{"max not above min", func(c *Config) { c.Validator.MaxSourceBytes = c.Validator.MinSourceBytes }},
		{"empty import allow-list", func(c *Config) { c.Validator.AllowedImports = nil }},
		{"zero event buffer", func(c *Config) { c.Hotswap.EventBuffer = 0 }},
		{"zero request timeout", func(c *Config) { c.Generation.RequestTimeout = 0 }},
		{"zero history limit", func(c *Config) { c.Generation.HistoryLimit = 0 }},
		{"zero rate limit", func(c *Config) { c.Generation.RateLimit = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
