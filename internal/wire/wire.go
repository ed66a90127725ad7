//go:build wireinject
// +build wireinject

package wire

import (
	apihttp "Herald/api/http"
	"Herald/internal/modules/notification/application/service"
	"Herald/internal/modules/notification/infrastructure/persistence"
	handler "Herald/internal/modules/notification/interface/http"
	"Herald/pkg/bus"
	"Herald/pkg/stream"

	"github.com/google/wire"
)

var repositorySet = wire.NewSet(
	ProvideDB,
	ProvideRedis,
	ProvideFollowStore,
	persistence.NewNotificationRepository,
	persistence.NewAnnouncementRepository,
	persistence.NewUserDirectory,
)

var deliverySet = wire.NewSet(
	ProvideBus,
	ProvideStreamManager,
	wire.Bind(new(service.EventPublisher), new(*bus.Bus)),
	wire.Bind(new(stream.Subscriber), new(*bus.Bus)),
)

var serviceSet = wire.NewSet(
	ProvideFeedOptions,
	service.NewNotificationService,
	service.NewFeedService,
	service.NewReadStateService,
	service.NewAnnouncementService,
)

var httpSet = wire.NewSet(
	ProvideSigner,
	handler.NewNotificationHandler,
	handler.NewFollowHandler,
	handler.NewAnnouncementHandler,
	handler.NewHealthHandler,
	ProvideStreamHandler,
	ProvideMCPHandler,
	wire.Struct(new(apihttp.Handlers), "*"),
	ProvideEngine,
	ProvideHTTPServer,
)

func InitializeApplication() (*Application, func(), error) {
	wire.Build(
		ProvideConfig,
		repositorySet,
		deliverySet,
		serviceSet,
		httpSet,
		ProvideSweeper,
		ProvideIngestWorker,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}
