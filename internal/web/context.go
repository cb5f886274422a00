package web

import (
	"net/http"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
	"github.com/AarnabDutta/Product-Importer-FullStack/internal/web/middleware"
)

// withClientIP stores the resolved client address in the request context
// so jobs can record where an upload came from.
func withClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithClientIP(r.Context(), middleware.ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
