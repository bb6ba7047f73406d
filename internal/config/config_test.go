package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv(EnvPrefix+"_SERVER_APIKEYS", "alpha, beta,,")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
ai:
  model: gemini-2.5-flash
  generate:
    temperature: 0.1
database:
  driver: sqlite
  dsn: file::memory:
cache:
  size: 32
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.Equal(t, 32, cfg.Cache.Size)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Server.APIKeys)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
	assert.NotEmpty(t, cfg.App.SessionFile)

	gen := cfg.GetGenerateConfig()
	require.NotNil(t, gen.Temperature)
	assert.InDelta(t, 0.1, *gen.Temperature, 1e-6)
	assert.Equal(t, "gemini-2.5-flash", gen.Model)
}

func TestLoadConfigFromMissingFile(t *testing.T) {
	_, err := LoadConfigFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv(EnvPrefix+"_DATABASE_DRIVER", "postgres")
	t.Setenv(EnvPrefix+"_DATABASE_DSN", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  dsn: \"\"\n"), 0600))

	_, err := LoadConfigFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database DSN is required")
}

func TestGetGenerateConfigFallbacks(t *testing.T) {
	timeout := 5 * time.Second
	cfg := &Config{
		AI: AIConfig{
			Provider:      "gemini",
			Model:         "global-model",
			Timeout:       time.Minute,
			APIKey:        "global-key",
			MaxRetries:    4,
			Temperature:   0.7,
			CustomPrompts: PromptConfig{SystemPrompt: "global system", UserPromptFile: "user.md"},
			Generate: OperationAIConfig{
				Timeout:       &timeout,
				CustomPrompts: PromptConfig{UserPrompt: "generate user"},
			},
		},
	}

	gen := cfg.GetGenerateConfig()
	assert.Equal(t, "gemini", gen.Provider)
	assert.Equal(t, "global-model", gen.Model)
	assert.Equal(t, "global-key", gen.APIKey)
	assert.Equal(t, 5*time.Second, *gen.Timeout)
	assert.Equal(t, 4, *gen.MaxRetries)
	assert.InDelta(t, 0.7, *gen.Temperature, 1e-6)
	assert.Equal(t, "global system", gen.CustomPrompts.SystemPrompt)
	assert.Equal(t, "generate user", gen.CustomPrompts.UserPrompt)
	assert.Equal(t, "user.md", gen.CustomPrompts.UserPromptFile)

	// The stored operation config is not mutated
	assert.Empty(t, cfg.AI.Generate.Model)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AI:       AIConfig{Timeout: time.Second},
			Server:   ServerConfig{Port: "8080"},
			App:      AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json", "yaml"}},
			Database: DatabaseConfig{Driver: "sqlite", DSN: "personakit.db"},
			Cache:    CacheConfig{Enabled: true, Size: 8},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no api key is fine", mutate: func(c *Config) { c.AI.APIKey = "" }},
		{name: "zero timeout", mutate: func(c *Config) { c.AI.Timeout = 0 }, wantErr: "AI timeout must be positive"},
		{name: "no port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "server port is required"},
		{name: "bad format", mutate: func(c *Config) { c.App.DefaultFormat = "xml" }, wantErr: "invalid default format"},
		{name: "bad driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "unsupported database driver"},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Database = DatabaseConfig{Driver: "postgres"} },
			wantErr: "database DSN is required",
		},
		{name: "empty cache", mutate: func(c *Config) { c.Cache.Size = 0 }, wantErr: "cache size must be positive"},
		{name: "disabled empty cache", mutate: func(c *Config) { c.Cache = CacheConfig{} }},
		{
			name:    "bad tls",
			mutate:  func(c *Config) { c.Server.TLS.Mode = "server" },
			wantErr: "TLS configuration error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
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

func TestIsSensitiveEnv(t *testing.T) {
	assert.True(t, isSensitiveEnv("PERSONAKIT_AI_APIKEY"))
	assert.True(t, isSensitiveEnv("PERSONAKIT_DATABASE_DSN"))
	assert.False(t, isSensitiveEnv("PERSONAKIT_SERVER_PORT"))
}
