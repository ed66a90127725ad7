package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.MainConfig.Port)
	assert.Equal(t, "sqlite", cfg.MysqlConfig.Driver)
	assert.Equal(t, 64, cfg.DeliveryConfig.BusBufferSize)
	assert.Equal(t, 30*time.Second, cfg.DeliveryConfig.Heartbeat())
	assert.Equal(t, 10*time.Second, cfg.DeliveryConfig.WriteTimeout())
	assert.Equal(t, 10, cfg.TimelineConfig.PageSize)
	assert.Equal(t, 24*time.Hour, cfg.TimelineConfig.LookAhead())
	assert.Equal(t, 7*24*time.Hour, cfg.TimelineConfig.RecentWindow())
	assert.Equal(t, 20, cfg.FeedConfig.DefaultLimit)
	assert.Equal(t, 100, cfg.FeedConfig.MaxLimit)
	assert.Equal(t, "@every 1m", cfg.SchedulerConfig.SweepSpec)
	assert.Equal(t, "herald.notifications.create.dlq", cfg.KafkaConfig.DeadLetterTopic)
	assert.False(t, cfg.RedisConfig.RedisEnabled())
	assert.False(t, cfg.KafkaConfig.KafkaEnabled())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[mainConfig]
port = 9090

[mysqlConfig]
driver = "mysql"
host = "db"
port = 3306
user = "herald"
password = "pw"
databaseName = "herald"

[deliveryConfig]
busBufferSize = 8
heartbeatSeconds = 5

[kafkaConfig]
ingestTopic = "notify.in"
`), 0o600))

	t.Setenv("HERALD_JWT_KEY", "from-env")
	t.Setenv("HERALD_REDIS_ADDR", "cache:6380")
	t.Setenv("HERALD_KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.MainConfig.Port)
	assert.Equal(t, "herald:pw@tcp(db:3306)/herald?charset=utf8mb4&parseTime=True&loc=UTC", cfg.MysqlConfig.MySQLDSN())
	assert.Equal(t, 8, cfg.DeliveryConfig.BusBufferSize)
	assert.Equal(t, 5*time.Second, cfg.DeliveryConfig.Heartbeat())
	assert.Equal(t, "from-env", cfg.JwtConfig.Key)
	assert.True(t, cfg.RedisConfig.RedisEnabled())
	assert.Equal(t, "cache:6380", cfg.RedisConfig.Addr())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, "notify.in.dlq", cfg.KafkaConfig.DeadLetterTopic)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[mainConfig\nport = "), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
