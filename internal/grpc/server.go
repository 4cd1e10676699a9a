// Package grpc serves the standard gRPC health service so orchestrators can
// probe the API process without speaking HTTP.
package grpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/narvanalabs/boardroom/internal/api/health"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "boardroom.Membership"

// Config holds the gRPC server configuration.
type Config struct {
	Port             int
	TLSCertFile      string
	TLSKeyFile       string
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	// PollInterval is how often the health status is refreshed.
	PollInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:             9090,
		KeepaliveTime:    30 * time.Second,
		KeepaliveTimeout: 10 * time.Second,
		PollInterval:     10 * time.Second,
	}
}

// StatusSource reports the aggregated health of the process.
type StatusSource interface {
	Check(ctx context.Context) *health.Response
}

// Server exposes grpc.health.v1.Health backed by a StatusSource.
type Server struct {
	config     *Config
	source     StatusSource
	logger     *slog.Logger
	grpcServer *grpc.Server
	health     *grpchealth.Server
	serving    atomic.Bool
}

// NewServer creates a new gRPC server instance.
func NewServer(cfg *Config, source StatusSource, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		source: source,
		logger: logger,
		health: grpchealth.NewServer(),
	}

	opts, err := s.buildServerOptions()
	if err != nil {
		return nil, err
	}
	s.grpcServer = grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	return s, nil
}

func (s *Server) buildServerOptions() ([]grpc.ServerOption, error) {
	opts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    s.config.KeepaliveTime,
			Timeout: s.config.KeepaliveTimeout,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             10 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(s.loggingInterceptor()),
		grpc.ChainStreamInterceptor(s.streamLoggingInterceptor()),
	}

	if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(s.config.TLSCertFile, s.config.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading TLS credentials: %w", err)
		}
		opts = append(opts, grpc.Creds(credentials.NewTLS(&tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})))
	}
	return opts, nil
}

// Start listens on the configured port and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.logger.Info("gRPC server starting", "address", addr)
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is cancelled or Stop is called.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.serving.Store(true)
	s.refresh(ctx)

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.poll(pollCtx)
	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("serving gRPC: %w", err)
	}
	return nil
}

// Stop marks every service NOT_SERVING and stops gracefully, forcing the
// stop when ctx ends first.
func (s *Server) Stop(ctx context.Context) error {
	if !s.serving.Swap(false) {
		return nil
	}
	s.logger.Info("gRPC server stopping")
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("gRPC server stopped gracefully")
	case <-time.After(30 * time.Second):
		s.logger.Warn("gRPC server graceful stop timed out, forcing stop")
		s.grpcServer.Stop()
	case <-ctx.Done():
		s.logger.Warn("context cancelled, forcing stop")
		s.grpcServer.Stop()
	}
	return nil
}

// IsServing returns whether the server is currently serving requests.
func (s *Server) IsServing() bool {
	return s.serving.Load()
}
