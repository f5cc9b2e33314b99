package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
)

type middlewareFunc func(next http.Handler) http.Handler

func useMiddlewares(r *http.ServeMux, middlewares ...middlewareFunc) http.Handler {
	var s http.Handler
	s = r

	for _, mw := range middlewares {
		s = mw(s)
	}

	return s
}

func (a *API) requestLoggerMiddleware() middlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestId := uuid.New()
			logger := a.logger.With(slog.String("request-id", requestId.String()))

			ctx := ctxWithRequestId(r.Context(), requestId)
			ctx = ctxWithLogger(ctx, logger)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *API) loggingMiddleware() middlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			loggingRW := newLoggingResponseWriter(w)

			// process the request
			next.ServeHTTP(loggingRW, r)

			a.getLoggerOrBaseLogger(r.Context()).InfoContext(r.Context(),
				"Access log",
				slog.String("latency", formatDuration(time.Since(start))),
				slog.Int64("request-content-length", r.ContentLength),
				slog.Int("resp-body-size", loggingRW.responseSize),
				slog.String("host", r.Host),
				slog.String("method", r.Method),
				slog.Int("status-code", loggingRW.statusCode),
				slog.String("path", r.URL.Path),
			)
		})
	}
}

func (a *API) corsMiddleware() middlewareFunc {
	var serverCors *cors.Cors

	switch a.env {
	case LOCAL:
		serverCors = cors.AllowAll()
	case PROD:
		serverCors = cors.New(cors.Options{
			AllowedOrigins: a.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         300,
		})
	}

	return serverCors.Handler
}

// formatDuration formats a duration to one decimal point.
func formatDuration(d time.Duration) string {
	div := time.Duration(10)
	switch {
	case d > time.Second:
		d = d.Round(time.Second / div)
	case d > time.Millisecond:
		d = d.Round(time.Millisecond / div)
	case d > time.Microsecond:
		d = d.Round(time.Microsecond / div)
	case d > time.Nanosecond:
		d = d.Round(time.Nanosecond / div)
	}
	return d.String()
}
