package initial

import (
	"context"
	"time"

	"Herald/internal/config"
	"Herald/pkg/zlog"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to redis. It returns nil, nil when no host is
// configured so callers can fall back to the database.
func NewRedisClient(conf config.RedisConfig) (*goredis.Client, error) {
	if !conf.RedisEnabled() {
		zlog.Info("redis not configured, skipping")
		return nil, nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         conf.Addr(),
		Password:     conf.Password,
		DB:           conf.DB,
		PoolSize:     conf.PoolSize,
		MinIdleConns: conf.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	zlog.Info("redis connected", zap.String("addr", conf.Addr()))
	return client, nil
}
