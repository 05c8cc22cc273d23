package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxdag/fluxdag/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "localhost", cfg.CoordinatorHost)
	assert.Equal(t, 8585, cfg.CoordinatorPort)
	assert.Equal(t, 1, cfg.WorkerConcurrency)
	assert.Equal(t, config.RegistryFile, cfg.Registry)
	assert.Equal(t, config.QueuePull, cfg.Queue)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fluxdag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
debug: true
log_format: json
coordinator:
  host: coord.internal
  port: 9090
worker:
  concurrency: 4
registry: redis
redis_addr: redis:6379
`), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "coord.internal", cfg.CoordinatorHost)
	assert.Equal(t, 9090, cfg.CoordinatorPort)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, config.RegistryRedis, cfg.Registry)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
}

func TestLoad_RedisRegistryRequiresAddr(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fluxdag.yaml")
	require.NoError(t, os.WriteFile(path, []byte("registry: redis\n"), 0644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidRegistryBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fluxdag.yaml")
	require.NoError(t, os.WriteFile(path, []byte("registry: carrier-pigeon\n"), 0644))

	_, err := config.Load(path)
	assert.Error(t, err)
}
