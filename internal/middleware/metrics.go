package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fobos-app/ledger/internal/metrics"
)

type requestObserver func(method, route string, code int, took time.Duration)

// RequestMetrics counts and times requests by chi route pattern, so
// /entries/{id} is one series rather than one per id.
func RequestMetrics(next http.Handler) http.Handler {
	return observeRequests(recordRequest)(next)
}

func recordRequest(method, route string, code int, took time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func observeRequests(obs requestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			cw := &codeWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r)
			obs(r.Method, routeOf(r), cw.code(), time.Since(start))
		})
	}
}

// codeWriter keeps the first status written. A handler that only calls
// Write answers 200.
type codeWriter struct {
	http.ResponseWriter
	status int
}

func (w *codeWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *codeWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *codeWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *codeWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func routeOf(r *http.Request) string {
	rc := chi.RouteContext(r.Context())
	if rc == nil {
		return "unmatched"
	}
	if p := rc.RoutePattern(); p != "" {
		return p
	}
	return "unmatched"
}
