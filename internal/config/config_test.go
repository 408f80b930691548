package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("INCIDENTDESK_JWT__SECRET", "test-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, 60*time.Second, cfg.SLA.CheckInterval)
	assert.Equal(t, 2*time.Hour, cfg.SLA.WarnAfter)
	assert.Equal(t, 4*time.Hour, cfg.SLA.EscalateAfter)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9999
log:
  level: debug
jwt:
  secret: from-file
storage:
  driver: sqlite
  sqlite:
    path: /tmp/test.db
auth:
  admins:
    - username: admin
      password: s3cret
      display_name: Administrator
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.SQLite.Path)
	require.Len(t, cfg.Auth.Admins, 1)
	assert.Equal(t, "admin", cfg.Auth.Admins[0].Username)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9999\njwt:\n  secret: x\n"), 0o644))

	t.Setenv("INCIDENTDESK_SERVER__PORT", "7777")
	t.Setenv("INCIDENTDESK_SERVER__METRICS_PORT", "7778")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, 7778, cfg.Server.MetricsPort)
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate_PostgresRequiresURL(t *testing.T) {
	cfg := Default()
	cfg.JWT.Secret = "x"
	cfg.Storage.Driver = "postgres"

	assert.Error(t, cfg.Validate())

	cfg.Storage.Postgres.URL = "postgres://localhost/incidents"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_SLAOrdering(t *testing.T) {
	cfg := Default()
	cfg.JWT.Secret = "x"
	cfg.SLA.WarnAfter = 5 * time.Hour

	assert.Error(t, cfg.Validate())
}
