package cli

import (
	"context"
	"os"

	"github.com/yanqian/todoc/internal/domain/record"
	"github.com/yanqian/todoc/internal/infra/config"
	"github.com/yanqian/todoc/internal/infra/sessionstore"
	"github.com/yanqian/todoc/internal/infra/todocapi"
	"github.com/yanqian/todoc/pkg/logger"
)

// LoadDeps builds Deps from configuration. Unless SESSIONS_BACKEND says
// otherwise, sessions live in the device-local SQLite file.
func LoadDeps(ctx context.Context) (*Deps, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if os.Getenv("SESSIONS_BACKEND") == "" && cfg.Sessions.Backend == config.BackendMemory {
		cfg.Sessions.Backend = config.BackendSQLite
	}
	loc, err := cfg.Journal.Location()
	if err != nil {
		return nil, nil, err
	}

	log := logger.New()
	client := todocapi.NewClient(todocapi.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
		Token:   cfg.Upstream.Token,
	}, nil, log)
	kv, closeKV := sessionstore.Open(ctx, cfg.Sessions, log)

	return &Deps{
		Records:    client,
		Months:     client,
		Kids:       client,
		Chat:       client,
		Remote:     client,
		Sessions:   kv,
		SessionKey: cfg.Sessions.Key,
		Journal: record.Config{
			Location:            loc,
			PreviousLookupLimit: cfg.Journal.PreviousLookupLimit,
			MaxLookbackPages:    cfg.Journal.MaxLookbackPages,
		},
		Logger: log,
	}, closeKV, nil
}
