package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.DB.MaxConnections)
	assert.Equal(t, 5*time.Second, cfg.DB.ConnectionTimeout)
	assert.Equal(t, ":8081", cfg.RPC.ImportAddr)
	assert.Equal(t, ":8082", cfg.RPC.TaskAddr)
	assert.False(t, cfg.RPC.Cleanup)
	assert.Equal(t, "satelit", cfg.Storage.Bucket)
	assert.Empty(t, cfg.Jobs.RedisAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_URL", "postgres://db:5432/other")
	t.Setenv("DB_MAX_CONNECTIONS", "32")
	t.Setenv("DB_CONNECTION_TIMEOUT", "12")
	t.Setenv("IMPORT_ADDR", ":9001")
	t.Setenv("TASK_ADDR", ":9002")
	t.Setenv("TASK_CLEANUP", "true")
	t.Setenv("STORAGE_HOST", "localhost:9000")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://db:5432/other", cfg.DB.URL)
	assert.Equal(t, 32, cfg.DB.MaxConnections)
	assert.Equal(t, 12*time.Second, cfg.DB.ConnectionTimeout)
	assert.Equal(t, ":9001", cfg.RPC.ImportAddr)
	assert.Equal(t, ":9002", cfg.RPC.TaskAddr)
	assert.True(t, cfg.RPC.Cleanup)
	assert.Equal(t, "localhost:9000", cfg.Storage.Host)
	assert.Equal(t, "localhost:6379", cfg.Jobs.RedisAddr)
}

func TestLoad_RejectsMalformedNumbers(t *testing.T) {
	t.Setenv("DB_MAX_CONNECTIONS", "many")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsMalformedBool(t *testing.T) {
	t.Setenv("TASK_CLEANUP", "yep")

	_, err := Load()
	assert.Error(t, err)
}
