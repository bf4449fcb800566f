package middleware

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/eaziurl/internal/handlers"
	"github.com/serroba/eaziurl/internal/shortener"
)

// DefaultPrincipalHeader is the header the upstream auth gateway sets after validating the caller.
const DefaultPrincipalHeader = "X-Principal-ID"

// Principal copies the authenticated principal from a trusted header into the request context.
// A missing or blank header leaves the request anonymous.
func Principal(header string) func(ctx huma.Context, next func(huma.Context)) {
	if header == "" {
		header = DefaultPrincipalHeader
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		principal := shortener.PrincipalID(strings.TrimSpace(ctx.Header(header)))
		if principal.Anonymous() {
			next(ctx)

			return
		}

		next(huma.WithContext(ctx, handlers.ContextWithPrincipal(ctx.Context(), principal)))
	}
}
