package container

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/eaziurl/internal/store/migrations"
	"go.uber.org/zap"
)

// Redis is the shared Redis client, closed on injector shutdown.
type Redis struct {
	*redis.Client
}

// Shutdown closes the client.
func (r *Redis) Shutdown() error {
	return r.Close()
}

// Postgres is the shared connection pool, closed on injector shutdown.
type Postgres struct {
	*pgxpool.Pool
}

// Shutdown closes the pool.
func (p *Postgres) Shutdown() error {
	p.Close()

	return nil
}

// RedisPackage provides the Redis client.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Redis, error) {
		opts := do.MustInvoke[*Options](i)

		return &Redis{redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

// PostgresPackage provides the connection pool, migrating the schema first when AutoMigrate is set.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Postgres, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.AutoMigrate {
			if err := Migrate(opts.DatabaseURL, logger); err != nil {
				return nil, err
			}
		}

		pool, err := pgxpool.New(context.Background(), opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		return &Postgres{pool}, nil
	})
}

// Migrate applies every pending schema migration to the database at databaseURL.
func Migrate(databaseURL string, logger *zap.Logger) error {
	migrator, err := migrations.New(databaseURL, logger)
	if err != nil {
		return err
	}

	if err := migrator.Up(); err != nil {
		_ = migrator.Close()

		return err
	}

	return migrator.Close()
}
