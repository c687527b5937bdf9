// Package service exposes the optional healthz and metrics listener.
package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Service serves /healthz and /metrics on one address for the duration
// of a run. It is off unless an address is configured.
type Service struct {
	server *http.Server
	log    log.Logger
}

// New builds the service around the given address.
func New(addr string, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Root()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK")) //nolint:errcheck
	})
	mux.Handle("/metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})

	return &Service{
		server: &http.Server{Addr: addr, Handler: c.Handler(mux)},
		log:    logger,
	}
}

// Start serves in the background until Shutdown.
func (s *Service) Start() {
	go func() {
		s.log.Info("Starting metrics server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Metrics server failed", "err", err)
		}
	}()
}

// Shutdown stops the listener.
func (s *Service) Shutdown(ctx context.Context) {
	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Warn("Metrics server shutdown failed", "err", err)
	}
}
