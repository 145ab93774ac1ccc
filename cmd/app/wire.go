//go:build wireinject
// +build wireinject

package main

import (
	"fingate/config"
	"fingate/internal/command"
	"fingate/internal/cron"
	"fingate/internal/database"
	fluentdRepository "fingate/internal/database/fluentd/repository"
	"fingate/internal/handler"
	"fingate/internal/middleware"
	"fingate/internal/ratelimit"
	"fingate/internal/router"
	"fingate/internal/service"
	"fingate/internal/telemetry"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// wireApp init application.
func wireApp(*config.Configuration, *zap.Logger) (*App, func(), error) {
	panic(
		wire.Build(
			database.ProviderSet,
			fluentdRepository.ProviderSet,
			ratelimit.ProviderSet,
			service.ProviderSet,
			handler.ProviderSet,
			middleware.ProviderSet,
			router.ProviderSet,
			cron.ProviderSet,
			newHttpServer,
			telemetry.ProviderSet,
			newApp,
		),
	)
}

// wireCommand init command dependencies.
func wireCommand(*config.Configuration, *zap.Logger) (*command.Command, func(), error) {
	panic(
		wire.Build(
			database.ProviderSet,
			fluentdRepository.ProviderSet,
			telemetry.ProviderSet,
			service.NewHTTPClient,
			ratelimit.ProviderSet,
			service.NewKeyTouchBatcher,
			service.NewAPIKeyService,
			service.NewLogNotifier,
			wire.Bind(new(service.Notifier), new(*service.LogNotifier)),
			service.NewDeliveryWorker,
			middleware.NewOwner,
			command.ProviderSet,
		),
	)
}
