package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
server:
  port: 5000
  env: test
database:
  url: "postgres://localhost/tstore_test"
jwt:
  secret: "file-secret"
recovery:
  token_ttl: 30
storage:
  type: local
  base_path: "./uploads"
`

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o644))

	t.Setenv("DATABASE_URL", "")
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Env)
	assert.Equal(t, "postgres://localhost/tstore_test", cfg.Database.DSN)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, 30, cfg.Recovery.TokenTTL)

	// Дефолты для незаполненного
	assert.Equal(t, 60*24*3, cfg.JWT.TTL)
	assert.Equal(t, 10, cfg.Email.TimeoutSec)
	assert.Equal(t, "TStore", cfg.Email.FromName)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host/tstore")
	t.Setenv("SERVER_ENV", "test")
	t.Setenv("SERVER_PORT", "4001")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://env-host/tstore", cfg.Database.DSN)
	assert.Equal(t, 4001, cfg.Server.Port)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, 20, cfg.Recovery.TokenTTL)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	_, err := Load()
	assert.Error(t, err)
}
