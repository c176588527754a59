package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Uchennem/sleepoutsideServer/pkg/logger"
)

// RequestLogger stores a logger enriched with the request's correlation and
// trace ids in the context, retrievable with logger.FromContext. Mount it
// after RequestLogging and Tracing. Routes behind Auth can mount it again to
// pick up the user id.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := UserIDFromContext(ctx); id != "" {
				ctx = logger.WithUserID(ctx, id)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
