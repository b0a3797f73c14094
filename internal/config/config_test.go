package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dom/empire-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, time.Second, cfg.Workers.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Workers.ShutdownTimeout)
	assert.Equal(t, time.Hour, cfg.ModifierCache.TTL)
	assert.Equal(t, 100, cfg.ModifierCache.MaxEntriesPerPlayer)
	assert.Equal(t, 2*time.Minute, cfg.Production.Interval)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/empire")
	t.Setenv("EMPIRE_WORKERS_TRAINING", "4")
	t.Setenv("EMPIRE_MODIFIER_CACHE_TTL", "15m")
	t.Setenv("EMPIRE_SERVER_PORT", "9000")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/empire", cfg.Database.URL)
	assert.Equal(t, 4, cfg.Workers.Training)
	assert.Equal(t, 15*time.Minute, cfg.ModifierCache.TTL)
	assert.Equal(t, "9000", cfg.Server.Port)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
auth:
  jwt_secret: from-file
workers:
  resource: 8
production:
  interval: 30s
`), 0o600)
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, 8, cfg.Workers.Resource)
	assert.Equal(t, 30*time.Second, cfg.Production.Interval)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("EMPIRE_AUTH_JWT_SECRET", "")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWTSecret")
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"zero poll interval", func(c *config.Config) { c.Workers.PollInterval = 0 }, "PollInterval"},
		{"negative workers", func(c *config.Config) { c.Workers.Training = -1 }, "Training"},
		{"bad log level", func(c *config.Config) { c.Database.LogLevel = "loud" }, "LogLevel"},
		{"relative metrics path", func(c *config.Config) { c.Metrics.Path = "metrics" }, "Path"},
		{"no cache room", func(c *config.Config) { c.ModifierCache.MaxEntriesPerPlayer = 0 }, "MaxEntriesPerPlayer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := config.Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func validConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{Port: "0", RequestTimeout: 10 * time.Second},
		Database: config.DatabaseConfig{
			URL:          "postgres://localhost/empire",
			MaxOpenConns: 5,
			MaxIdleConns: 1,
			LogLevel:     "silent",
		},
		Auth: config.AuthConfig{JWTSecret: "secret"},
		Workers: config.WorkersConfig{
			Resource:        1,
			Modifier:        1,
			Training:        1,
			Building:        1,
			PollInterval:    time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		ModifierCache: config.ModifierCacheConfig{Enabled: true, TTL: time.Hour, MaxEntriesPerPlayer: 100},
		Production:    config.ProductionConfig{Interval: 2 * time.Minute},
		Metrics:       config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func TestValidConfigPasses(t *testing.T) {
	assert.NoError(t, config.Validate(validConfig()))
}
