// Package api serves FWU metadata inspection over HTTP.
//
// Every route lives under /api/v1 and answers with an APIResponse envelope,
// except /api/v1/metadata/generate, which returns the raw record. When an
// API key is configured the /api/v1 group requires it in the X-API-Key
// header. /metrics is always open for scraping.
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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"k8s.io/klog/v2"
)

const (
	DefaultMaxBodyBytes    = 1 << 20
	DefaultRefreshInterval = 30 * time.Second
	shutdownTimeout        = 5 * time.Second
)

// Routes builds the router for s.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.APIKey != "" {
			r.Use(s.metrics.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))
		}

		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		// Stateless codec operations
		r.Post("/metadata/decode", s.metrics.InstrumentHandler("POST", "/api/v1/metadata/decode", s.handleDecode))
		r.Post("/metadata/validate", s.metrics.InstrumentHandler("POST", "/api/v1/metadata/validate", s.handleValidate))
		r.Post("/metadata/generate", s.metrics.InstrumentHandler("POST", "/api/v1/metadata/generate", s.handleGenerate))

		// Stored records
		r.Get("/metadata/history", s.metrics.InstrumentHandler("GET", "/api/v1/metadata/history", s.handleHistory))
		r.Get("/metadata/{slot}", s.metrics.InstrumentHandler("GET", "/api/v1/metadata/{slot}", s.handleGetStored))
	})

	return r
}

// StartServer serves the API until ctx is cancelled. source may be nil, in
// which case only the stateless routes work.
func StartServer(ctx context.Context, source MetadataSource, config ServerConfig) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := NewMetrics(reg)
	server := NewServer(source, config, metrics)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	updaterCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go server.startMetricsUpdater(updaterCtx)

	errCh := make(chan error, 1)
	go func() {
		klog.Infof("Starting fwumeta API server on %s", addr)
		klog.Infof("Metrics available at: http://%s/metrics", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	klog.Info("Shutting down API server")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
