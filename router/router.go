// Package router mounts the small ops HTTP surface — /healthz, /ready and
// /metrics — that runs alongside the long-polling Telegram bot. The
// middleware chain (CORS, security headers, request id, panic recovery,
// request logging, body size limit) is the only thing this binary needs
// beyond the ops endpoints, since chat commands are dispatched by the
// Telegram long-poll loop, not HTTP.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/monoledger/monoledger/config"
	mlmw "github.com/monoledger/monoledger/middleware"
	"github.com/monoledger/monoledger/observability"
)

// New returns a chi.Router exposing health and metrics endpoints for the
// bot process. metrics may be nil, in which case /metrics is not mounted.
func New(cfg *config.Config, appLogger zerolog.Logger, metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(mlmw.CORSMiddleware([]string{"*"}))
	r.Use(mlmw.SecurityHeadersMiddleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(appLogger))
	r.Use(maxBodySize(cfg.MaxBodyBytes))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"monoledger"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready","service":"monoledger"}`))
	})

	if metrics != nil {
		r.Get("/metrics", metrics.Handler())
	}

	return r
}

func maxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = 1 * 1024 * 1024
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, `{"error":"request_too_large"}`, http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(appLogger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			appLogger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", chimw.GetReqID(r.Context())).
				Int("status", rw.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}
