package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/artpar/documind/adapters/memory"
	"github.com/artpar/documind/adapters/postgres"
	"github.com/artpar/documind/adapters/redis"
	"github.com/artpar/documind/adapters/sqlite"
	"github.com/artpar/documind/config"
	"github.com/artpar/documind/ports"
)

// Stores bundles the usage log and chat history for one backend.
type Stores struct {
	Driver  string
	Usage   ports.UsageLog
	History ports.ChatHistoryStore
	Pinger  ports.Pinger

	close func() error
}

// Close releases the backend connection.
func (s *Stores) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores connects to the configured backend and applies migrations.
func OpenStores(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (*Stores, error) {
	switch cfg.Driver {
	case "memory":
		usageStore := memory.NewUsageStore()
		logger.Warn().Msg("using in-memory store, usage resets on restart")
		return &Stores{
			Driver:  cfg.Driver,
			Usage:   usageStore,
			History: memory.NewChatStore(),
			Pinger:  usageStore,
		}, nil

	case "sqlite":
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Str("dsn", cfg.DSN).Msg("sqlite store initialized")
		usageStore := sqlite.NewUsageStore(db)
		return &Stores{
			Driver:  cfg.Driver,
			Usage:   usageStore,
			History: sqlite.NewChatStore(db),
			Pinger:  usageStore,
			close:   db.Close,
		}, nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Msg("postgres store initialized")
		usageStore := postgres.NewUsageStore(db)
		return &Stores{
			Driver:  cfg.Driver,
			Usage:   usageStore,
			History: postgres.NewChatStore(db),
			Pinger:  usageStore,
			close:   db.Close,
		}, nil

	case "redis":
		client, err := redis.Open(ctx, redis.Options{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			Retention: cfg.Redis.Retention,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis store initialized")
		return &Stores{
			Driver:  cfg.Driver,
			Usage:   redis.NewUsageStore(client),
			History: redis.NewChatStore(client),
			Pinger:  client,
			close:   client.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
