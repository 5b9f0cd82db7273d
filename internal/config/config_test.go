package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VERSEBOOK_AUTH_JWT_SECRET", "test-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Addr())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./data/versebook.db", cfg.Database.Path)
	assert.True(t, cfg.Database.IsEmbedded())
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9091, cfg.Metrics.Port)
	assert.Equal(t, 5*time.Minute, cfg.Cache.RecordTTL)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 8080
database:
  driver: memory
auth:
  jwt_secret: file-secret
  bcrypt_cost: 12
logging:
  level: debug
  format: console
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
auth:
  jwt_secret: file-secret
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("VERSEBOOK_SERVER_PORT", "9999")
	t.Setenv("VERSEBOOK_DATABASE_DRIVER", "memory")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}
	t.Setenv("VERSEBOOK_AUTH_JWT_SECRET", "test-secret")

	t.Run("bad driver", func(t *testing.T) {
		cfg := base()
		cfg.Database.Driver = "mongo"
		assert.Error(t, cfg.Validate())
	})

	t.Run("postgres requires host", func(t *testing.T) {
		cfg := base()
		cfg.Database.Driver = "postgres"
		cfg.Database.Host = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("bcrypt cost bounds", func(t *testing.T) {
		cfg := base()
		cfg.Auth.BcryptCost = 3
		assert.Error(t, cfg.Validate())

		cfg.Auth.BcryptCost = 32
		assert.Error(t, cfg.Validate())

		cfg.Auth.BcryptCost = 4
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := base()
		cfg.Logging.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})
}
