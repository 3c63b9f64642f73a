package middleware

import (
	"net"
	"net/http"
	"strconv"

	"github.com/josh-kwaku/lingualance-api/internal/handler"
	"github.com/josh-kwaku/lingualance-api/internal/logging"
	"github.com/josh-kwaku/lingualance-api/internal/ratelimit"
)

type rateLimitObserver interface {
	IncRateLimited(scope string)
}

// RateLimit caps requests per client IP within scope. A limiter outage lets
// requests through rather than locking every user out.
func RateLimit(limiter ratelimit.Limiter, scope string, m rateLimitObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + clientIP(r)

			d, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logging.FromContext(r.Context()).Error("rate limiter unavailable", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if !d.Allowed {
				m.IncRateLimited(scope)
				logging.FromContext(r.Context()).Warn("rate limited", "scope", scope, "count", d.Count)
				w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds()))
				handler.RespondAppError(w, handler.ErrRateLimited, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
