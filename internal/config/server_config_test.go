package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := NewServerConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8084, cfg.Port)
	assert.Equal(t, QueueTypeEmbedded, cfg.QueueType)
	assert.Equal(t, SnapshotStoreMemory, cfg.SnapshotStore)
	assert.Equal(t, LockBackendLocal, cfg.LockBackend)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OVERCAST_PORT", "9090")
	t.Setenv("OVERCAST_DEBUG", "true")
	t.Setenv("OVERCAST_QUEUE_TYPE", "distributed")
	t.Setenv("OVERCAST_REDIS_URL", "redis://redis.internal:6379/2")
	t.Setenv("OVERCAST_SNAPSHOT_STORE", "s3")
	t.Setenv("OVERCAST_SNAPSHOT_BUCKET", "overcast-prod")
	t.Setenv("OVERCAST_LOCK_BACKEND", "dynamodb")
	t.Setenv("OVERCAST_LOCK_TABLE", "overcast-locks")
	t.Setenv("OVERCAST_LOCK_TTL", "5m")

	cfg := NewServerConfig()
	cfg.LoadFromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, QueueTypeDistributed, cfg.QueueType)
	assert.Equal(t, "redis://redis.internal:6379/2", cfg.RedisURL)
	assert.Equal(t, "overcast-prod", cfg.SnapshotBucket)
	assert.Equal(t, "overcast-locks", cfg.LockTable)
	assert.Equal(t, 5*time.Minute, cfg.LockTTL)
}

func TestEnvIgnoresGarbageValues(t *testing.T) {
	t.Setenv("OVERCAST_PORT", "not-a-number")
	t.Setenv("OVERCAST_LOCK_TTL", "sideways")

	cfg := NewServerConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, 8084, cfg.Port, "unparseable values keep the default")
	assert.Equal(t, 15*time.Minute, cfg.LockTTL)
}

func TestValidateRejectsInconsistentConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"bad port", func(c *ServerConfig) { c.Port = 0 }},
		{"unknown queue type", func(c *ServerConfig) { c.QueueType = "carrier-pigeon" }},
		{"distributed without redis", func(c *ServerConfig) { c.QueueType = QueueTypeDistributed; c.RedisURL = "" }},
		{"s3 without bucket", func(c *ServerConfig) { c.SnapshotStore = SnapshotStoreS3 }},
		{"dynamodb without table", func(c *ServerConfig) { c.LockBackend = LockBackendDynamoDB }},
		{"remediation without advisor", func(c *ServerConfig) { c.RemediationEnabled = true }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewServerConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSanitizedMasksSecrets(t *testing.T) {
	cfg := NewServerConfig()
	cfg.AdvisorAPIKey = "sk-secret"

	sanitized := cfg.GetSanitized()
	assert.Equal(t, "****", sanitized.AdvisorAPIKey)
	assert.Equal(t, "sk-secret", cfg.AdvisorAPIKey, "the original is untouched")
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := NewServerConfig()
	cfg.PIDFile = dir + "/run/overcast.pid"
	cfg.LogFile = dir + "/log/overcast.log"

	require.NoError(t, cfg.ExpandPaths())
	assert.DirExists(t, dir+"/run")
	assert.DirExists(t, dir+"/log")
	assert.Equal(t, dir+"/run/overcast.pid", cfg.GetPIDPath())
}
