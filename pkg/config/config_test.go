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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, 16, cfg.Indexer.Concurrency)
	assert.False(t, cfg.Indexer.FailFast)
	assert.Equal(t, "index.complete", cfg.Kafka.Topics.IndexComplete)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
storage:
  backend: minio
  bucket: docs
  endpoint: localhost:9000
  readTimeout: 5s
indexer:
  concurrency: 4
  failFast: true
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))
	t.Setenv("FTI_LOGGING_FORMAT", "text")
	t.Setenv("FTI_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendMinio, cfg.Storage.Backend)
	assert.Equal(t, "docs", cfg.Storage.Bucket)
	assert.Equal(t, 5*time.Second, cfg.Storage.ReadTimeout)
	assert.Equal(t, 4, cfg.Indexer.Concurrency)
	assert.True(t, cfg.Indexer.FailFast)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	// untouched sections keep their defaults
	assert.Equal(t, 3, cfg.Storage.RetryAttempts)
}

func TestValidate(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Storage.Backend = "ftp"
		assert.ErrorContains(t, cfg.Validate(), "unknown storage backend")
	})
	t.Run("bucket required", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Storage.Backend = BackendS3
		assert.ErrorContains(t, cfg.Validate(), "storage.bucket")
	})
	t.Run("concurrency", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Indexer.Concurrency = 0
		assert.ErrorContains(t, cfg.Validate(), "concurrency")
	})
}
