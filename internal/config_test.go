package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	for _, key := range []string{"DATABASE_DRIVER", "DATABASE_URL", "AI_PROVIDER", "STORAGE_PROVIDER", "AI_CACHE_SIZE", "PORT"} {
		t.Setenv(key, "")
	}

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "file:cleancity.db", cfg.DatabaseURL)
	assert.Equal(t, AIProviderOffline, cfg.AIProvider)
	assert.Equal(t, "", cfg.StorageProvider)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 128, cfg.AICacheSize)
	assert.Equal(t, 30*time.Second, cfg.AIRequestTimeout)
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/cleancity")
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AI_RETRY_BASE_DELAY", "250ms")
	t.Setenv("AI_MAX_RETRIES", "not-a-number")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, AIProviderOpenAI, cfg.AIProvider)
	assert.Equal(t, 250*time.Millisecond, cfg.AIRetryBaseDelay)
	assert.Equal(t, 3, cfg.AIMaxRetries, "unparseable values fall back to the default")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseDriver: "sqlite",
			DatabaseURL:    "file:test.db",
			AIProvider:     AIProviderOffline,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.DatabaseDriver = "mysql" },
			wantErr: "DATABASE_DRIVER",
		},
		{
			name:    "r2 without account",
			mutate:  func(c *Config) { c.StorageProvider = "r2" },
			wantErr: "R2_ACCOUNT_ID",
		},
		{
			name: "r2 complete",
			mutate: func(c *Config) {
				c.StorageProvider = "r2"
				c.R2AccountID = "acct"
				c.R2AccessKeyID = "key"
				c.R2SecretAccessKey = "secret"
				c.R2BucketName = "images"
			},
		},
		{
			name:    "unknown storage",
			mutate:  func(c *Config) { c.StorageProvider = "ftp" },
			wantErr: "STORAGE_PROVIDER",
		},
		{
			name:    "anthropic without key",
			mutate:  func(c *Config) { c.AIProvider = AIProviderAnthropic },
			wantErr: "ANTHROPIC_API_KEY",
		},
		{
			name:    "gemini without key",
			mutate:  func(c *Config) { c.AIProvider = AIProviderGemini },
			wantErr: "GEMINI_API_KEY",
		},
		{
			name:    "unknown ai provider",
			mutate:  func(c *Config) { c.AIProvider = "llama" },
			wantErr: "AI_PROVIDER",
		},
		{
			name:    "negative cache size",
			mutate:  func(c *Config) { c.AICacheSize = -1 },
			wantErr: "AI_CACHE_SIZE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
