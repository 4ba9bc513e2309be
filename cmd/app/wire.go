//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/bootstrap"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/advisor"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/syncqueue"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/infra/config"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/infra/predictor/remote"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/infra/weather/openweather"
	httpiface "github.com/tharunkamalesh/crop-yield-platform-devops/internal/interface/http"
	"github.com/tharunkamalesh/crop-yield-platform-devops/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideAdvisorConfig,
		provideRemoteClient,
		provideConnectivity,
		provideWeatherClient,
		provideQueueStore,
		provideQueue,
		provideHistoryRepository,
		advisor.NewService,
		wire.Bind(new(advisor.RemotePredictor), new(*remote.Client)),
		wire.Bind(new(syncqueue.Transport), new(*remote.Client)),
		wire.Bind(new(advisor.WeatherLookup), new(*openweather.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
