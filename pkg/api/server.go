// Package api flightlog REST API
//
// @title           flightlog REST API
// @version         1.0.0
// @description     Read-only access to decoded flight logs: metadata, topics, rows and value changes.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router returns the handler serving every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/health", s.metrics.InstrumentHandler("GET", "/health", s.handleHealth))

	m := s.metrics
	r.Route("/api/v1", func(r chi.Router) {
		if s.config.APIKey != "" {
			r.Use(m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))
		}

		r.Get("/logs", m.InstrumentHandler("GET", "/api/v1/logs", s.handleListLogs))
		r.Post("/logs", m.InstrumentHandler("POST", "/api/v1/logs", s.handleLoadLog))

		r.Route("/logs/{id}", func(r chi.Router) {
			r.Get("/", m.InstrumentHandler("GET", "/api/v1/logs/{id}", s.handleGetLog))
			r.Delete("/", m.InstrumentHandler("DELETE", "/api/v1/logs/{id}", s.handleDeleteLog))
			r.Get("/info", m.InstrumentHandler("GET", "/api/v1/logs/{id}/info", s.handleInfo))
			r.Get("/params", m.InstrumentHandler("GET", "/api/v1/logs/{id}/params", s.handleParams))
			r.Get("/messages", m.InstrumentHandler("GET", "/api/v1/logs/{id}/messages", s.handleMessages))
			r.Get("/dropouts", m.InstrumentHandler("GET", "/api/v1/logs/{id}/dropouts", s.handleDropouts))

			// Topics
			r.Get("/topics", m.InstrumentHandler("GET", "/api/v1/logs/{id}/topics", s.handleTopics))
			r.Get("/topics/{name}", m.InstrumentHandler("GET", "/api/v1/logs/{id}/topics/{name}", s.handleTopicRows))
			r.Get("/topics/{name}/changes/{field}",
				m.InstrumentHandler("GET", "/api/v1/logs/{id}/topics/{name}/changes/{field}", s.handleValueChanges))
		})
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, service ILogService, metrics *Metrics, config ServerConfig, logger *zap.Logger) error {
	server := NewServer(service, config, metrics, logger)

	srv := &http.Server{
		Addr:              config.Addr(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	server.logger.Info("starting flightlog REST API server",
		zap.String("addr", srv.Addr),
		zap.Bool("auth", config.APIKey != ""),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	server.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.shutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down api server: %w", err)
	}
	return nil
}
