package sessionstore

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/todoc/internal/domain/aisession"
	"github.com/yanqian/todoc/internal/infra/config"
)

// Open builds the configured backend. A backend that cannot be reached is
// logged and replaced by the in-memory store so the journal keeps working.
// The returned func releases the backend's connections.
func Open(ctx context.Context, cfg config.SessionsConfig, logger *slog.Logger) (aisession.KV, func()) {
	logger = logger.With("component", "sessionstore", "backend", cfg.Backend)
	fallback := func(msg string, err error) (aisession.KV, func()) {
		logger.Error(msg+", using memory store", "error", err)
		return NewMemoryStore(), func() {}
	}

	switch cfg.Backend {
	case config.BackendValkey:
		opt, err := valkeyOptions(cfg.Redis.Addr)
		if err != nil {
			return fallback("invalid valkey configuration", err)
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			return fallback("failed to create valkey client", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
			client.Close()
			return fallback("valkey ping failed", err)
		}
		logger.Info("session store enabled", "addr", cfg.Redis.Addr)
		return NewValkeyStore(client, cfg.Redis.Prefix), client.Close

	case config.BackendPostgres:
		poolConfig, err := pgxpool.ParseConfig(strings.TrimSpace(cfg.Postgres.DSN))
		if err != nil {
			return fallback("invalid postgres dsn", err)
		}
		if cfg.Postgres.MaxConns > 0 {
			poolConfig.MaxConns = cfg.Postgres.MaxConns
		}
		if cfg.Postgres.MinConns > 0 {
			poolConfig.MinConns = cfg.Postgres.MinConns
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return fallback("failed to initialize postgres pool", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return fallback("postgres ping failed", err)
		}
		store := NewPostgresStore(pool)
		if err := store.EnsureSchema(pingCtx); err != nil {
			pool.Close()
			return fallback("postgres schema setup failed", err)
		}
		logger.Info("session store enabled")
		return store, pool.Close

	case config.BackendSQLite:
		store, err := NewSQLiteStore(cfg.SQLite.Path)
		if err != nil {
			return fallback("failed to open sqlite store", err)
		}
		logger.Info("session store enabled", "path", cfg.SQLite.Path)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("close sqlite store failed", "error", err)
			}
		}

	case config.BackendObject:
		store, err := NewObjectStore(ObjectConfig{
			Endpoint:  cfg.Object.Endpoint,
			AccessKey: cfg.Object.AccessKey,
			SecretKey: cfg.Object.SecretKey,
			Bucket:    cfg.Object.Bucket,
			Region:    cfg.Object.Region,
			Prefix:    cfg.Object.Prefix,
		}, logger)
		if err != nil {
			return fallback("failed to create object store", err)
		}
		logger.Info("session store enabled", "bucket", cfg.Object.Bucket)
		return store, func() {}
	}

	return NewMemoryStore(), func() {}
}

func valkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
