// Package server provides gRPC server lifecycle management.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/solatis/fieldcomp/internal/core/api"
	"github.com/solatis/fieldcomp/internal/core/config"
)

// shutdownTimeout bounds GracefulStop before in-flight calls are cut.
const shutdownTimeout = 30 * time.Second

// GRPCServer manages gRPC server lifecycle.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	config config.ServerConfig
	log    *zap.Logger
}

// NewGRPCServer creates a server with the Composer and health services registered.
// Every call runs under the configured request timeout and is logged.
func NewGRPCServer(cfg config.ServerConfig, service api.ComposerServer, log *zap.Logger) (*GRPCServer, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if log == nil {
		log = zap.NewNop()
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor(log),
			TimeoutInterceptor(cfg.RequestTimeout),
		),
	)
	api.RegisterComposerServer(server, service)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(api.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &GRPCServer{
		server: server,
		health: healthServer,
		config: cfg,
		log:    log,
	}, nil
}

// Start binds the configured address and serves until Shutdown.
func (s *GRPCServer) Start(ctx context.Context) error {
	addr := s.config.Addr()
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on lis until Shutdown.
func (s *GRPCServer) Serve(lis net.Listener) error {
	s.log.Info("serving gRPC", zap.String("addr", lis.Addr().String()))
	return s.server.Serve(lis)
}

// Shutdown marks the services NOT_SERVING, then stops gracefully within
// shutdownTimeout or ctx, whichever ends first.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	timer := time.NewTimer(shutdownTimeout)
	defer timer.Stop()

	select {
	case <-stopped:
		s.log.Info("gRPC server stopped")
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("shutdown cancelled by context: %w", ctx.Err())
	case <-timer.C:
		s.server.Stop()
		return fmt.Errorf("graceful shutdown timeout, forced stop")
	}
}
