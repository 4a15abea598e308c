package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"reading-timing-service/internal/observability/metrics"
)

// RequestMiddleware returns HTTP middleware that logs each request and
// records request metrics by route pattern.
func RequestMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			// Route pattern is only known after routing has run.
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}

			m.RecordHTTPRequest(route, strconv.Itoa(ww.Status()), duration)

			log.Info().
				Str("method", r.Method).
				Str("route", route).
				Int("status", ww.Status()).
				Dur("duration", duration).
				Msg("HTTP request")
		})
	}
}
