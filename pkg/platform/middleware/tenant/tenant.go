// Package tenant provides middleware that binds a request to exactly one
// resolved tenant before any tenant-scoped handler runs.
package tenant

import (
	"context"
	"log/slog"
	"net/http"

	"noro/internal/tenant/models"
	"noro/internal/tenant/resolver"
	"noro/pkg/platform/httputil"
	"noro/pkg/platform/middleware/request"
)

// HeaderSlug carries the tenant slug on every CRM request. The edge proxy
// sets it from the subdomain; clients talking to the API directly set it
// themselves.
const HeaderSlug = "X-Tenant-Slug"

type contextKey struct{}

// WithTenant stores the resolved tenant on the context.
func WithTenant(ctx context.Context, t *models.Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the resolved tenant, or nil if the request did not pass
// through Require.
func FromContext(ctx context.Context) *models.Tenant {
	t, _ := ctx.Value(contextKey{}).(*models.Tenant)
	return t
}

// Require resolves the slug header and injects the tenant into the request
// context. Requests that do not resolve get 404 regardless of why.
func Require(r *resolver.Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			slug := req.Header.Get(HeaderSlug)

			tenant, err := r.Resolve(req.Context(), slug)
			if err != nil {
				httputil.WriteError(w, logger, err, request.GetRequestID(req.Context()))
				return
			}

			next.ServeHTTP(w, req.WithContext(WithTenant(req.Context(), tenant)))
		})
	}
}
