package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"apyhub/internal/observability"
)

// metricsMiddleware records request counts and latency per route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		observability.DefaultMetrics.RequestsTotal.
			WithLabelValues(pattern, strconv.Itoa(ww.Status())).Inc()
		observability.DefaultMetrics.RequestDuration.
			WithLabelValues(pattern).Observe(time.Since(start).Seconds())
	})
}
