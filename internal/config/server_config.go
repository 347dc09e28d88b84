// Package config holds the server's environment-driven configuration.
// Every knob reads an OVERCAST_* variable with a sensible default, so a bare
// `overcast server start` works out of the box with embedded backends.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Queue backend selectors
const (
	QueueTypeEmbedded    = "embedded"
	QueueTypeDistributed = "distributed"
)

// Snapshot backend selectors
const (
	SnapshotStoreMemory = "memory"
	SnapshotStoreS3     = "s3"
)

// Lock backend selectors
const (
	LockBackendLocal    = "local"
	LockBackendDynamoDB = "dynamodb"
)

// ServerConfig carries every runtime setting of the overcast server
type ServerConfig struct {
	Port      int    `json:"port"`
	Debug     bool   `json:"debug"`
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
	PIDFile   string `json:"pid_file"`
	LogFile   string `json:"log_file"`

	QueueType        string `json:"queue_type"`
	RedisURL         string `json:"redis_url"`
	WorkerPoolSize   int    `json:"worker_pool_size"`
	QueueCapacity    int    `json:"queue_capacity"`
	MirrorOperations bool   `json:"mirror_operations"`

	SnapshotStore    string `json:"snapshot_store"`
	SnapshotBucket   string `json:"snapshot_bucket"`
	SnapshotRegion   string `json:"snapshot_region"`
	SnapshotPrefix   string `json:"snapshot_prefix"`
	SnapshotEndpoint string `json:"snapshot_endpoint"`

	LockBackend  string        `json:"lock_backend"`
	LockTable    string        `json:"lock_table"`
	LockRegion   string        `json:"lock_region"`
	LockEndpoint string        `json:"lock_endpoint"`
	LockTTL      time.Duration `json:"lock_ttl"`

	RemediationEnabled bool   `json:"remediation_enabled"`
	AdvisorBaseURL     string `json:"advisor_base_url"`
	AdvisorAPIKey      string `json:"advisor_api_key"`
	AdvisorModel       string `json:"advisor_model"`
	BastionHost        string `json:"bastion_host"`
	BastionPort        int    `json:"bastion_port"`
	BastionUser        string `json:"bastion_user"`
	BastionKeyPath     string `json:"bastion_key_path"`
}

// NewServerConfig returns a config with defaults applied
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8084,
		LogLevel:       "INFO",
		LogFormat:      "text",
		PIDFile:        "~/.overcast/overcast.pid",
		LogFile:        "~/.overcast/overcast.log",
		QueueType:      QueueTypeEmbedded,
		RedisURL:       "redis://localhost:6379/0",
		WorkerPoolSize: 4,
		QueueCapacity:  256,
		SnapshotStore:  SnapshotStoreMemory,
		SnapshotRegion: "us-east-1",
		SnapshotPrefix: "overcast",
		LockBackend:    LockBackendLocal,
		LockRegion:     "us-east-1",
		LockTTL:        15 * time.Minute,
		AdvisorModel:   "gpt-4o-mini",
		BastionPort:    22,
	}
}

// LoadFromEnv overrides defaults with OVERCAST_* environment variables
func (c *ServerConfig) LoadFromEnv() {
	envInt("OVERCAST_PORT", &c.Port)
	envBool("OVERCAST_DEBUG", &c.Debug)
	envString("OVERCAST_LOG_LEVEL", &c.LogLevel)
	envString("OVERCAST_LOG_FORMAT", &c.LogFormat)
	envString("OVERCAST_PID_FILE", &c.PIDFile)
	envString("OVERCAST_LOG_FILE", &c.LogFile)

	envString("OVERCAST_QUEUE_TYPE", &c.QueueType)
	envString("OVERCAST_REDIS_URL", &c.RedisURL)
	envInt("OVERCAST_WORKER_POOL_SIZE", &c.WorkerPoolSize)
	envInt("OVERCAST_QUEUE_CAPACITY", &c.QueueCapacity)
	envBool("OVERCAST_MIRROR_OPERATIONS", &c.MirrorOperations)

	envString("OVERCAST_SNAPSHOT_STORE", &c.SnapshotStore)
	envString("OVERCAST_SNAPSHOT_BUCKET", &c.SnapshotBucket)
	envString("OVERCAST_SNAPSHOT_REGION", &c.SnapshotRegion)
	envString("OVERCAST_SNAPSHOT_PREFIX", &c.SnapshotPrefix)
	envString("OVERCAST_SNAPSHOT_ENDPOINT", &c.SnapshotEndpoint)

	envString("OVERCAST_LOCK_BACKEND", &c.LockBackend)
	envString("OVERCAST_LOCK_TABLE", &c.LockTable)
	envString("OVERCAST_LOCK_REGION", &c.LockRegion)
	envString("OVERCAST_LOCK_ENDPOINT", &c.LockEndpoint)
	envDuration("OVERCAST_LOCK_TTL", &c.LockTTL)

	envBool("OVERCAST_REMEDIATION_ENABLED", &c.RemediationEnabled)
	envString("OVERCAST_ADVISOR_BASE_URL", &c.AdvisorBaseURL)
	envString("OVERCAST_ADVISOR_API_KEY", &c.AdvisorAPIKey)
	envString("OVERCAST_ADVISOR_MODEL", &c.AdvisorModel)
	envString("OVERCAST_BASTION_HOST", &c.BastionHost)
	envInt("OVERCAST_BASTION_PORT", &c.BastionPort)
	envString("OVERCAST_BASTION_USER", &c.BastionUser)
	envString("OVERCAST_BASTION_KEY_PATH", &c.BastionKeyPath)
}

// Validate checks cross-field consistency
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	switch c.QueueType {
	case QueueTypeEmbedded, QueueTypeDistributed:
	default:
		return fmt.Errorf("invalid queue type: %s", c.QueueType)
	}
	if c.QueueType == QueueTypeDistributed && c.RedisURL == "" {
		return fmt.Errorf("distributed queue requires OVERCAST_REDIS_URL")
	}
	switch c.SnapshotStore {
	case SnapshotStoreMemory, SnapshotStoreS3:
	default:
		return fmt.Errorf("invalid snapshot store: %s", c.SnapshotStore)
	}
	if c.SnapshotStore == SnapshotStoreS3 && c.SnapshotBucket == "" {
		return fmt.Errorf("s3 snapshot store requires OVERCAST_SNAPSHOT_BUCKET")
	}
	switch c.LockBackend {
	case LockBackendLocal, LockBackendDynamoDB:
	default:
		return fmt.Errorf("invalid lock backend: %s", c.LockBackend)
	}
	if c.LockBackend == LockBackendDynamoDB && c.LockTable == "" {
		return fmt.Errorf("dynamodb lock requires OVERCAST_LOCK_TABLE")
	}
	if c.RemediationEnabled && c.AdvisorBaseURL == "" {
		return fmt.Errorf("remediation requires OVERCAST_ADVISOR_BASE_URL")
	}
	return nil
}

// ExpandPaths resolves ~ in file paths and creates parent directories
func (c *ServerConfig) ExpandPaths() error {
	var err error
	if c.PIDFile, err = expandPath(c.PIDFile); err != nil {
		return err
	}
	if c.LogFile, err = expandPath(c.LogFile); err != nil {
		return err
	}
	for _, p := range []string{c.PIDFile, c.LogFile} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
	}
	return nil
}

// GetPIDPath returns the expanded pid file path
func (c *ServerConfig) GetPIDPath() string {
	return c.PIDFile
}

// GetSanitized returns a copy safe for logging: secrets are masked
func (c *ServerConfig) GetSanitized() *ServerConfig {
	out := *c
	if out.AdvisorAPIKey != "" {
		out.AdvisorAPIKey = "****"
	}
	return &out
}

func expandPath(p string) (string, error) {
	if len(p) == 0 || p[0] != '~' {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand %s: %w", p, err)
	}
	return filepath.Join(home, p[1:]), nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
