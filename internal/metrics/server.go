// Package metrics exposes the prometheus registry and a liveness endpoint.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fedicache/internal/cache"
	"fedicache/internal/config"
)

type Server struct {
	Logger *slog.Logger
	Config *config.Config
	Cache  *cache.Store

	server *http.Server
}

func (s *Server) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "metrics.Server")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"status":"ok","cached_entries":%d}`, s.Cache.Len())
	})

	s.server = &http.Server{
		Addr:    s.Config.MetricsAddr,
		Handler: mux,
	}

	return nil
}

func (s *Server) Run(ctx context.Context) error {
	s.Logger.Info("Starting metrics server", "addr", s.server.Addr)

	go func() {
		<-ctx.Done()
		// Run's ctx is already cancelled here, shut down on a fresh one.
		s.server.Shutdown(context.TODO()) //nolint:errcheck
	}()

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) HealthCheck(_ context.Context) error {
	return nil
}
