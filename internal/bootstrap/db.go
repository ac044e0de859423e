package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/codegen-backend/config"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/repository"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/storage/postgres"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/storage/sqlite"
)

// OpenRedis connects to Redis when an address is configured. It returns a nil
// client otherwise.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// OpenStore builds the project store selected by STORE_DRIVER. The returned
// close function releases the underlying connections.
func OpenStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) (repository.Store, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPostgresStore(pool), pool.Close, nil

	case "sqlite":
		db, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLStore(db), func() { _ = db.Close() }, nil

	case "redis":
		if rdb == nil {
			return nil, nil, fmt.Errorf("redis store requires REDIS_ADDR")
		}
		return repository.NewRedisStore(rdb), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// RedisPinger adapts a Redis client to the health check interface.
func RedisPinger(client *redis.Client) interface{ Ping(ctx context.Context) error } {
	return redisPinger{client: client}
}
