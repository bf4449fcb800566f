package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/eaziurl/internal/events"
	"github.com/serroba/eaziurl/internal/handlers"
	"github.com/serroba/eaziurl/internal/health"
	"github.com/serroba/eaziurl/internal/messaging"
	"github.com/serroba/eaziurl/internal/middleware"
	"github.com/serroba/eaziurl/internal/shortener"
	"go.uber.org/zap"
)

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		service, err := do.Invoke[*shortener.Service](i)
		if err != nil {
			return nil, err
		}

		publish, err := do.Invoke[messaging.Publish[events.LinkEncodedEvent]](i)
		if err != nil {
			return nil, err
		}

		api := humachi.New(router, huma.DefaultConfig("eaziurl", "1.0.0"))
		api.UseMiddleware(middleware.Principal(opts.PrincipalHeader))
		api.UseMiddleware(middleware.AccessLog(logger.Named("http")))

		health.RegisterRoutes(api, health.NewHandler(healthChecks(i, opts), logger.Named("health")))
		handlers.RegisterRoutes(api, handlers.NewLinkHandler(service, publish, logger.Named("links")))

		return api, nil
	})
}

func healthChecks(i *do.Injector, opts *Options) map[string]health.Checker {
	checks := make(map[string]health.Checker)

	if opts.UsesRedis() {
		checks["redis"] = health.NewRedisChecker(do.MustInvoke[*Redis](i).Client)
	}

	if opts.Store == StorePostgres {
		checks["postgres"] = do.MustInvoke[*Postgres](i)
	}

	return checks
}
