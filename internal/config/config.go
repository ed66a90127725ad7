package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const defaultConfigPath = "configs/config_local.toml"

type MainConfig struct {
	AppName string `toml:"appName"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	// AllowOrigins feeds CORS; empty allows any origin.
	AllowOrigins []string `toml:"allowOrigins"`
	SSLRedirect  bool     `toml:"sslRedirect"`
	ShutdownSecs int      `toml:"shutdownSeconds"`
}

type MysqlConfig struct {
	// Driver is "mysql" or "sqlite".
	Driver       string `toml:"driver"`
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
	AutoMigrate  bool   `toml:"autoMigrate"`
}

type LogConfig struct {
	LogPath string `toml:"logPath"`
	Level   string `toml:"level"`
}

type JwtConfig struct {
	Key         string `toml:"key"`
	ExpireHours int    `toml:"expireHours"`
	Issuer      string `toml:"issuer"`
}

type RedisConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"poolSize"`
	MinIdleConns int    `toml:"minIdleConns"`
}

type KafkaConfig struct {
	Brokers         []string `toml:"brokers"`
	ClientID        string   `toml:"clientID"`
	IngestTopic     string   `toml:"ingestTopic"`
	DeadLetterTopic string   `toml:"deadLetterTopic"`
	ConsumerGroupID string   `toml:"consumerGroupID"`
	Partitions      int32    `toml:"partitions"`
	Replication     int16    `toml:"replication"`
}

type DeliveryConfig struct {
	BusBufferSize       int `toml:"busBufferSize"`
	HeartbeatSeconds    int `toml:"heartbeatSeconds"`
	WriteTimeoutSeconds int `toml:"writeTimeoutSeconds"`
}

type TimelineConfig struct {
	PageSize         int `toml:"pageSize"`
	LookAheadHours   int `toml:"lookAheadHours"`
	RecentWindowDays int `toml:"recentWindowDays"`
}

type FeedConfig struct {
	DefaultLimit int `toml:"defaultLimit"`
	MaxLimit     int `toml:"maxLimit"`
}

type SchedulerConfig struct {
	Enabled   bool   `toml:"enabled"`
	SweepSpec string `toml:"sweepSpec"`
}

type MCPConfig struct {
	Enabled bool   `toml:"enabled"`
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type Config struct {
	MainConfig      `toml:"mainConfig"`
	MysqlConfig     `toml:"mysqlConfig"`
	JwtConfig       `toml:"jwtConfig"`
	RedisConfig     `toml:"redisConfig"`
	KafkaConfig     `toml:"kafkaConfig"`
	LogConfig       `toml:"logConfig"`
	DeliveryConfig  `toml:"deliveryConfig"`
	TimelineConfig  `toml:"timelineConfig"`
	FeedConfig      `toml:"feedConfig"`
	SchedulerConfig `toml:"schedulerConfig"`
	MCPConfig       `toml:"mcpConfig"`
}

func (c DeliveryConfig) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

func (c DeliveryConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

func (c TimelineConfig) LookAhead() time.Duration {
	return time.Duration(c.LookAheadHours) * time.Hour
}

func (c TimelineConfig) RecentWindow() time.Duration {
	return time.Duration(c.RecentWindowDays) * 24 * time.Hour
}

// RedisEnabled is false when no redis host is configured; the follow store
// then falls back to the database.
func (c RedisConfig) RedisEnabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c KafkaConfig) KafkaEnabled() bool {
	return len(c.Brokers) > 0
}

// MySQLDSN returns DSN if set, otherwise builds one from the parts.
func (c MysqlConfig) MySQLDSN() string {
	if strings.TrimSpace(c.DSN) != "" {
		return c.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.DatabaseName)
}

// Load reads .env (if present), the toml file at path, applies env
// overrides and fills defaults. An empty path uses HERALD_CONFIG or the
// local default; a missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if strings.TrimSpace(path) == "" {
		path = os.Getenv("HERALD_CONFIG")
	}
	if strings.TrimSpace(path) == "" {
		path = defaultConfigPath
	}

	cfg := &Config{}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HERALD_JWT_KEY"); v != "" {
		cfg.JwtConfig.Key = v
	}
	if v := os.Getenv("HERALD_MYSQL_DSN"); v != "" {
		cfg.MysqlConfig.DSN = v
		if cfg.MysqlConfig.Driver == "" {
			cfg.MysqlConfig.Driver = "mysql"
		}
	}
	if v := os.Getenv("HERALD_REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		cfg.RedisConfig.Host = host
		if ok {
			var p int
			if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
				cfg.RedisConfig.Port = p
			}
		}
	}
	if v := os.Getenv("HERALD_KAFKA_BROKERS"); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		cfg.KafkaConfig.Brokers = brokers
	}
}

func applyDefaults(cfg *Config) {
	m := &cfg.MainConfig
	if m.AppName == "" {
		m.AppName = "Herald"
	}
	if m.Host == "" {
		m.Host = "0.0.0.0"
	}
	if m.Port == 0 {
		m.Port = 8080
	}
	if m.ShutdownSecs <= 0 {
		m.ShutdownSecs = 15
	}

	db := &cfg.MysqlConfig
	if db.Driver == "" {
		db.Driver = "sqlite"
	}
	if db.Driver == "sqlite" && db.DSN == "" {
		db.DSN = "file:herald.db?_pragma=busy_timeout(5000)"
	}

	j := &cfg.JwtConfig
	if j.ExpireHours <= 0 {
		j.ExpireHours = 24
	}
	if j.Issuer == "" {
		j.Issuer = "herald"
	}

	r := &cfg.RedisConfig
	if r.Port == 0 {
		r.Port = 6379
	}
	if r.PoolSize <= 0 {
		r.PoolSize = 20
	}

	k := &cfg.KafkaConfig
	if k.ClientID == "" {
		k.ClientID = "herald"
	}
	if k.IngestTopic == "" {
		k.IngestTopic = "herald.notifications.create"
	}
	if k.DeadLetterTopic == "" {
		k.DeadLetterTopic = k.IngestTopic + ".dlq"
	}
	if k.ConsumerGroupID == "" {
		k.ConsumerGroupID = "herald-ingest"
	}

	d := &cfg.DeliveryConfig
	if d.BusBufferSize <= 0 {
		d.BusBufferSize = 64
	}
	if d.HeartbeatSeconds <= 0 {
		d.HeartbeatSeconds = 30
	}
	if d.WriteTimeoutSeconds <= 0 {
		d.WriteTimeoutSeconds = 10
	}

	t := &cfg.TimelineConfig
	if t.PageSize <= 0 {
		t.PageSize = 10
	}
	if t.LookAheadHours <= 0 {
		t.LookAheadHours = 24
	}
	if t.RecentWindowDays <= 0 {
		t.RecentWindowDays = 7
	}

	f := &cfg.FeedConfig
	if f.DefaultLimit <= 0 {
		f.DefaultLimit = 20
	}
	if f.MaxLimit <= 0 {
		f.MaxLimit = 100
	}

	s := &cfg.SchedulerConfig
	if s.SweepSpec == "" {
		s.SweepSpec = "@every 1m"
	}

	mc := &cfg.MCPConfig
	if mc.Name == "" {
		mc.Name = "herald-notifications"
	}
	if mc.Version == "" {
		mc.Version = "1.0.0"
	}
}
