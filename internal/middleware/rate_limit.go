package middleware

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/fobos-app/ledger/internal/api/httpx"
)

// RateLimit applies one process-wide token bucket of rps tokens per second
// with a burst of rps. rps <= 0 disables limiting.
func RateLimit(rps int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return rateLimit(rate.NewLimiter(rate.Limit(rps), rps), time.Now)
}

func rateLimit(l *rate.Limiter, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.AllowN(now(), 1) {
				w.Header().Set("Retry-After", "1")
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
