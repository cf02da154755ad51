// Package service runs the launch-test service's HTTP sidecars: a healthz
// liveness endpoint and a prometheus metrics endpoint.
package service

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-launchtest/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = "8080"

	MetricsHost = "0.0.0.0"
	MetricsPort = "7300"
)

type Service struct {
	log     log.Logger
	Healthz *HealthzServer
	Metrics *MetricsServer
}

func New(logger log.Logger) *Service {
	if logger == nil {
		logger = log.Root()
	}
	return &Service{
		log:     logger,
		Healthz: &HealthzServer{log: logger},
		Metrics: &MetricsServer{log: logger},
	}
}

func (s *Service) Start(ctx context.Context) {
	s.log.Info("Starting launch-test service endpoints")

	go func() {
		addr := net.JoinHostPort(HealthzHost, HealthzPort)
		s.log.Info("Starting healthz server", "addr", addr)
		if err := s.Healthz.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Error starting healthz server", "error", err)
			metrics.RecordErrorDetails("error starting healthz server", err)
		}
	}()

	go func() {
		addr := net.JoinHostPort(MetricsHost, MetricsPort)
		s.log.Info("Starting metrics server", "addr", addr)
		if err := s.Metrics.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Error starting metrics server", "error", err)
			metrics.RecordErrorDetails("error starting metrics server", err)
		}
	}()
}

func (s *Service) Shutdown() {
	s.log.Info("Stopping launch-test service endpoints")

	_ = s.Healthz.Shutdown()
	s.log.Info("Healthz server stopped")

	_ = s.Metrics.Shutdown()
	s.log.Info("Metrics server stopped")
}
