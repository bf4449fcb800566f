package container

import (
	"fmt"
	"time"

	"github.com/samber/do"
	"github.com/serroba/eaziurl/internal/shortener"
	"github.com/serroba/eaziurl/internal/store"
	"go.uber.org/zap"
)

// StorePackage provides the repository selected by Options.Store.
func StorePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.Repository, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Store {
		case StoreMemory, "":
			return store.NewMemoryStore(), nil
		case StorePostgres:
			pg, err := do.Invoke[*Postgres](i)
			if err != nil {
				return nil, err
			}

			return store.NewPostgresStore(pg.Pool), nil
		default:
			return nil, fmt.Errorf("unknown store %q", opts.Store)
		}
	})
}

// CachePackage provides the cache selected by Options.Cache.
func CachePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.Cache, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Cache {
		case CacheRedis:
			client, err := do.Invoke[*Redis](i)
			if err != nil {
				return nil, err
			}

			return store.NewRedisCache(client.Client, time.Duration(opts.CacheTTLSeconds)*time.Second), nil
		case CacheLRU:
			return store.NewLRUCache(opts.LRUSize)
		case CacheNone, "":
			return store.NopCache{}, nil
		default:
			return nil, fmt.Errorf("unknown cache %q", opts.Cache)
		}
	})
}

// ShortenerPackage provides the shortener service.
func ShortenerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*shortener.Service, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		repo, err := do.Invoke[shortener.Repository](i)
		if err != nil {
			return nil, err
		}

		cache, err := do.Invoke[shortener.Cache](i)
		if err != nil {
			return nil, err
		}

		generate, err := shortener.NewKeyGenerator(opts.CodeLength)
		if err != nil {
			return nil, err
		}

		return shortener.NewService(repo, cache, generate, shortener.Config{
			BaseURL:     opts.PublicBaseURL(),
			DisplayBase: opts.DisplayBase,
			MaxAttempts: opts.KeyAttempts,
		}, logger.Named("shortener")), nil
	})
}
