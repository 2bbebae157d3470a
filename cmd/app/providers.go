package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yanqian/todoc/internal/domain/aisession"
	"github.com/yanqian/todoc/internal/domain/auth"
	"github.com/yanqian/todoc/internal/domain/calendar"
	"github.com/yanqian/todoc/internal/domain/record"
	"github.com/yanqian/todoc/internal/infra/config"
	"github.com/yanqian/todoc/internal/infra/sessionstore"
	"github.com/yanqian/todoc/internal/infra/todocapi"
	"github.com/yanqian/todoc/pkg/metrics"
)

func provideLocation(cfg *config.Config) (*time.Location, error) {
	return cfg.Journal.Location()
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideRecordConfig(cfg *config.Config, loc *time.Location) record.Config {
	return record.Config{
		Location:            loc,
		PreviousLookupLimit: cfg.Journal.PreviousLookupLimit,
		MaxLookbackPages:    cfg.Journal.MaxLookbackPages,
	}
}

func provideCalendarConfig(loc *time.Location) calendar.Config {
	return calendar.Config{Location: loc}
}

func provideAPIConfig(cfg *config.Config) todocapi.Config {
	return todocapi.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
		Token:   cfg.Upstream.Token,
	}
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret: cfg.Auth.Secret,
		Leeway: cfg.Auth.Leeway,
	}
}

func provideSessionKV(cfg *config.Config, logger *slog.Logger) (aisession.KV, func()) {
	return sessionstore.Open(context.Background(), cfg.Sessions, logger)
}

func provideSessionCache(cfg *config.Config, kv aisession.KV, m *metrics.Metrics, logger *slog.Logger) *aisession.Cache {
	return aisession.NewCache(kv, cfg.Sessions.Key, m, logger)
}

func provideRemoteSessions(api aisession.RemoteAPI) aisession.Store {
	return aisession.NewRemote(api)
}
