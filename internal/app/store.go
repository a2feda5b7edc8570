package app

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/relay/internal/config"
	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/redis"
	"github.com/MrSnakeDoc/relay/internal/store"
	"github.com/MrSnakeDoc/relay/internal/store/memory"
	"github.com/MrSnakeDoc/relay/internal/store/postgres"
	redisstore "github.com/MrSnakeDoc/relay/internal/store/redis"
	"github.com/MrSnakeDoc/relay/internal/store/sqlite"
)

// OpenStore connects the history backend selected by cfg.StoreDriver.
// Postgres and Redis block until the server answers or the retry budget runs out.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, error) {
	log = log.With(logger.String("driver", cfg.StoreDriver))

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		st, err := postgres.Open(ctx, cfg.DatabaseURL, store.DefaultRetryPolicy(), log)
		if err != nil {
			return nil, err
		}
		if cfg.MigrateOnStart {
			if err := postgres.RunMigrate(log, cfg.DatabaseURL, "up", nil); err != nil {
				_ = st.Close()
				return nil, fmt.Errorf("migrate on start: %w", err)
			}
		}
		return st, nil

	case config.DriverSQLite:
		log.Info("opening sqlite history", logger.String("path", cfg.SQLitePath))
		return sqlite.Open(ctx, cfg.SQLitePath)

	case config.DriverRedis:
		client, err := redis.New(ctx, redis.ConnectOptions{
			Addr:         cfg.RedisAddr,
			User:         cfg.RedisUser,
			Password:     cfg.RedisPassword,
			RedisDB:      cfg.RedisDB,
			DialTimeout:  cfg.RedisDT,
			ReadTimeout:  cfg.RedisRT,
			WriteTimeout: cfg.RedisWT,
			PoolSize:     cfg.RedisPoolSize,
			Retry: store.RetryPolicy{
				ConnectTimeout: cfg.RedisConnectTimeout,
				RetryInterval:  cfg.RedisRetryInterval,
				MaxWait:        cfg.RedisMaxWait,
				PingTimeout:    cfg.RedisPingTimeout,
				WarnThreshold:  cfg.RedisWarnThreshold,
			},
		}, log)
		if err != nil {
			return nil, err
		}
		return redisstore.NewStore(client, cfg.RedisKeyPrefix), nil

	case config.DriverMemory:
		log.Warn("memory history store selected, records are lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
