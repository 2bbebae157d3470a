//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yanqian/todoc/internal/bootstrap"
	"github.com/yanqian/todoc/internal/domain/aisession"
	"github.com/yanqian/todoc/internal/domain/auth"
	"github.com/yanqian/todoc/internal/domain/calendar"
	"github.com/yanqian/todoc/internal/domain/record"
	"github.com/yanqian/todoc/internal/infra/config"
	"github.com/yanqian/todoc/internal/infra/todocapi"
	httpiface "github.com/yanqian/todoc/internal/interface/http"
	"github.com/yanqian/todoc/pkg/logger"
	"github.com/yanqian/todoc/pkg/metrics"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideLocation,
		provideRegistry,
		wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
		wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
		metrics.New,
		provideRecordConfig,
		provideCalendarConfig,
		provideAPIConfig,
		provideAuthConfig,
		provideSessionKV,
		provideSessionCache,
		provideRemoteSessions,
		todocapi.NewClient,
		wire.Bind(new(record.Reader), new(*todocapi.Client)),
		wire.Bind(new(record.Writer), new(*todocapi.Client)),
		wire.Bind(new(calendar.API), new(*todocapi.Client)),
		wire.Bind(new(aisession.ChatAPI), new(*todocapi.Client)),
		wire.Bind(new(aisession.RemoteAPI), new(*todocapi.Client)),
		wire.Bind(new(httpiface.KidDirectory), new(*todocapi.Client)),
		record.NewAggregator,
		calendar.NewService,
		aisession.NewChatService,
		auth.NewService,
		wire.Bind(new(httpiface.DayService), new(*record.Aggregator)),
		wire.Bind(new(httpiface.MonthService), new(*calendar.Service)),
		httpiface.NewHandler,
		httpiface.NewSessionHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
