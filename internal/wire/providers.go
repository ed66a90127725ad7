package wire

import (
	"context"
	"net/http"
	"strconv"
	"time"

	apihttp "Herald/api/http"
	"Herald/internal/config"
	"Herald/internal/initial"
	"Herald/internal/modules/notification/application/service"
	"Herald/internal/modules/notification/domain/eligibility"
	"Herald/internal/modules/notification/domain/repository"
	"Herald/internal/modules/notification/infrastructure/follow"
	"Herald/internal/modules/notification/infrastructure/persistence"
	"Herald/internal/modules/notification/infrastructure/queue"
	handler "Herald/internal/modules/notification/interface/http"
	"Herald/internal/modules/notification/interface/mcptools"
	"Herald/internal/modules/notification/interface/scheduler"
	"Herald/pkg/bus"
	"Herald/pkg/mq"
	"Herald/pkg/mq/kafka"
	"Herald/pkg/stream"
	"Herald/pkg/util/myjwt"
	"Herald/pkg/zlog"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Application is the assembled process. Sweeper and Ingest are nil when
// disabled by configuration.
type Application struct {
	Config  *config.Config
	Server  *http.Server
	Manager *stream.Manager
	Sweeper *scheduler.StatusSweeper
	Ingest  *queue.IngestConsumerWorker
}

func ProvideConfig() (*config.Config, error) {
	conf, err := config.Load("")
	if err != nil {
		return nil, err
	}
	zlog.Init(conf.LogConfig.LogPath, conf.LogConfig.Level)
	return conf, nil
}

func ProvideDB(conf *config.Config) (*gorm.DB, func(), error) {
	db, err := initial.NewGormDB(conf.MysqlConfig)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func ProvideRedis(conf *config.Config) (*goredis.Client, func(), error) {
	client, err := initial.NewRedisClient(conf.RedisConfig)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if client != nil {
			_ = client.Close()
		}
	}
	return client, cleanup, nil
}

// ProvideFollowStore prefers redis and falls back to the person_follow table.
func ProvideFollowStore(db *gorm.DB, client *goredis.Client) repository.FollowStore {
	if client != nil {
		return follow.NewRedisFollowStore(client)
	}
	return persistence.NewFollowStore(db)
}

func ProvideBus(conf *config.Config) *bus.Bus {
	return bus.New(conf.DeliveryConfig.BusBufferSize)
}

func ProvideStreamManager(b *bus.Bus, conf *config.Config) *stream.Manager {
	return stream.NewManager(b, stream.Options{
		Heartbeat:    conf.DeliveryConfig.Heartbeat(),
		WriteTimeout: conf.DeliveryConfig.WriteTimeout(),
	})
}

func ProvideSigner(conf *config.Config) (*myjwt.Signer, error) {
	return myjwt.NewSigner(conf.JwtConfig.Key, conf.JwtConfig.Issuer, conf.JwtConfig.ExpireHours)
}

func ProvideFeedOptions(conf *config.Config) service.FeedOptions {
	return service.FeedOptions{
		DefaultLimit:     conf.FeedConfig.DefaultLimit,
		MaxLimit:         conf.FeedConfig.MaxLimit,
		TimelinePageSize: conf.TimelineConfig.PageSize,
		TimelineWindow: eligibility.TimelineWindow{
			LookAhead: conf.TimelineConfig.LookAhead(),
			Recent:    conf.TimelineConfig.RecentWindow(),
		},
	}
}

func ProvideStreamHandler(m *stream.Manager, conf *config.Config) *handler.StreamHandler {
	return handler.NewStreamHandler(m, conf.DeliveryConfig.Heartbeat())
}

// ProvideMCPHandler returns nil when the tool surface is disabled.
func ProvideMCPHandler(conf *config.Config, producer service.NotificationService, feed service.FeedService) http.Handler {
	if !conf.MCPConfig.Enabled {
		return nil
	}
	s := mcptools.NewServer(mcptools.ServerConfig{
		Name:    conf.MCPConfig.Name,
		Version: conf.MCPConfig.Version,
	}, mcptools.NewNotificationToolHandler(producer, feed))
	return mcptools.NewHTTPHandler(s)
}

func ProvideEngine(conf *config.Config, signer *myjwt.Signer, h apihttp.Handlers) *gin.Engine {
	return apihttp.NewEngine(conf.MainConfig, signer, h)
}

func ProvideHTTPServer(conf *config.Config, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              conf.MainConfig.Host + ":" + strconv.Itoa(conf.MainConfig.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func ProvideSweeper(conf *config.Config, svc service.AnnouncementService) *scheduler.StatusSweeper {
	if !conf.SchedulerConfig.Enabled {
		return nil
	}
	return scheduler.NewStatusSweeper(svc, conf.SchedulerConfig.SweepSpec)
}

// ProvideIngestWorker wires the kafka ingest topic to the producer service.
// It returns nil when no brokers are configured.
func ProvideIngestWorker(conf *config.Config, producer service.NotificationService) (*queue.IngestConsumerWorker, func(), error) {
	kc := conf.KafkaConfig
	if !kc.KafkaEnabled() {
		return nil, func() {}, nil
	}

	if err := kafka.EnsureTopics(kafka.TopicAdminConfig{Brokers: kc.Brokers, ClientID: kc.ClientID},
		kafka.TopicSpec{Name: kc.IngestTopic, Partitions: kc.Partitions, ReplicationFactor: kc.Replication},
		kafka.TopicSpec{Name: kc.DeadLetterTopic, Partitions: 1, ReplicationFactor: kc.Replication},
	); err != nil {
		// 主题可能由运维预先创建，失败不阻止启动
		zlog.Warn("kafka ensure topics failed", zap.Error(err))
	}

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:  kc.Brokers,
		GroupID:  kc.ConsumerGroupID,
		Topics:   []string{kc.IngestTopic},
		ClientID: kc.ClientID,
	})
	if err != nil {
		return nil, nil, err
	}
	var deadLetter mq.Publisher
	if kc.DeadLetterTopic != "" {
		deadLetter, err = kafka.NewPublisher(kafka.PublisherConfig{Brokers: kc.Brokers, ClientID: kc.ClientID})
		if err != nil {
			_ = consumer.Close()
			return nil, nil, err
		}
	}

	cleanup := func() {
		_ = consumer.Close()
		if deadLetter != nil {
			_ = deadLetter.Close()
		}
	}
	return queue.NewIngestConsumerWorker(consumer, producer, deadLetter, kc.DeadLetterTopic), cleanup, nil
}

// Shutdown stops intake first, then live sessions, then the HTTP server.
func (a *Application) Shutdown(ctx context.Context) error {
	if a.Sweeper != nil {
		a.Sweeper.Stop(ctx)
	}
	if err := a.Manager.Shutdown(ctx); err != nil {
		zlog.Warn("stream sessions did not close in time", zap.Error(err))
	}
	return a.Server.Shutdown(ctx)
}
