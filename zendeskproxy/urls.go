package zendeskproxy

import (
	"context"
	"net/http"

	"github.com/GoCodeAlone/zendeskproxy/ratelimit"
	"github.com/google/uuid"
)

// routes builds the app's URL table. Paths are relative to the mount prefix.
func (h *handler) routes(limiter ratelimit.Limiter) http.Handler {
	mux := http.NewServeMux()
	for endpoint, fn := range map[string]http.HandlerFunc{
		"v0": h.handleV0,
		"v1": h.handleV1,
	} {
		limit := ratelimit.Middleware(limiter, h.clientKey, h.logger, func(*http.Request) {
			h.metrics.RecordRateLimited(endpoint)
		})
		mux.Handle("POST /"+endpoint, limit(fn))
	}
	return withRequestID(mux)
}

type requestIDKey struct{}

// withRequestID tags each request with an X-Request-ID, keeping one the
// caller supplied.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
