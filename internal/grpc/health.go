package grpc

import (
	"context"
	"time"

	"github.com/narvanalabs/boardroom/internal/api/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func (s *Server) poll(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh maps the aggregated health onto the gRPC serving status. Degraded
// still counts as serving.
func (s *Server) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.source != nil {
		if resp := s.source.Check(ctx); resp.Status == health.StatusUnhealthy {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.Warn("health check failed", "components", resp.Components)
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
