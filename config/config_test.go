package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "ak-test")
	t.Setenv("GOOGLE_API_KEY", "gk-test")
	t.Setenv("MAGENTO_API_TOKEN", "mg-test")
	t.Setenv("CDP_API_KEY", "cdp-test")
}

func TestLoad_Defaults(t *testing.T) {
	setSecrets(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "openai", cfg.DefaultProvider)
	assert.Equal(t, []string{"openai"}, cfg.EnabledProviders())
	assert.Equal(t, time.Hour, cfg.IntentCacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.ProductCacheTTL)
	assert.Equal(t, 10, cfg.MaxConversationTurns)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	setSecrets(t)
	t.Setenv("ENABLE_OPENAI", "false")
	t.Setenv("ENABLE_ANTHROPIC", "true")
	t.Setenv("ENABLE_OLLAMA", "true")
	t.Setenv("INTENT_CACHE_TTL", "90s")
	t.Setenv("CACHE_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"anthropic", "ollama"}, cfg.EnabledProviders())
	assert.Equal(t, 90*time.Second, cfg.IntentCacheTTL)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "no providers",
			cfg:     Config{CacheBackend: "redis"},
			wantErr: "no LLM providers enabled",
		},
		{
			name:    "openai without key",
			cfg:     Config{EnableOpenAI: true, CacheBackend: "redis"},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "bad cache backend",
			cfg:     Config{EnableOllama: true, CacheBackend: "memcached"},
			wantErr: "CACHE_BACKEND",
		},
		{
			name: "ollama only",
			cfg:  Config{EnableOllama: true, CacheBackend: "memory"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAPIKey(t *testing.T) {
	cfg := Config{APIKeyRequired: false}
	assert.True(t, cfg.ValidateAPIKey(""))

	cfg = Config{APIKeyRequired: true}
	assert.True(t, cfg.ValidateAPIKey("anything"), "no keys configured means open access")

	cfg = Config{APIKeyRequired: true, APIKeys: "alpha, beta ,"}
	assert.True(t, cfg.ValidateAPIKey("alpha"))
	assert.True(t, cfg.ValidateAPIKey("beta"))
	assert.False(t, cfg.ValidateAPIKey("gamma"))
	assert.False(t, cfg.ValidateAPIKey(""))
}
