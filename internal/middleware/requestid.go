package middleware

import (
	"context"
	"net/http"

	"dreambot/internal/infra"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
)

// RequestID tags every request with a correlation id — the caller's
// X-Request-ID when present, a fresh one otherwise — and binds a logger
// carrying it into the request context, so handler and flow logs of one
// interaction line up.
func RequestID(logger infra.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get("X-Request-ID")
			if rid == "" {
				rid = infra.NewCorrelationID()
			}
			ctx := context.WithValue(r.Context(), requestIDKey, rid)
			ctx = infra.WithCorrelation(logger, rid).WithContext(ctx)
			w.Header().Set("X-Request-ID", rid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext returns the correlation id set by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
