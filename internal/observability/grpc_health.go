package observability

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealth serves the standard gRPC health protocol. The serving status
// of ServiceName follows the readiness checks, polled on an interval.
type GRPCHealth struct {
	server   *grpc.Server
	health   *health.Server
	checks   []Check
	interval time.Duration
}

// NewGRPCHealth creates a gRPC server exposing grpc.health.v1
func NewGRPCHealth(interval time.Duration, checks ...Check) *GRPCHealth {
	hs := health.NewServer()
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &GRPCHealth{server: s, health: hs, checks: checks, interval: interval}
}

// Refresh runs the checks once and publishes the result
func (g *GRPCHealth) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if _, ok := RunChecks(ctx, g.checks); !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus(ServiceName, status)
	g.health.SetServingStatus("", status)
	return status
}

// Serve listens on addr until ctx is cancelled
func (g *GRPCHealth) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return g.ServeListener(ctx, lis)
}

// ServeListener serves on an existing listener until ctx is cancelled
func (g *GRPCHealth) ServeListener(ctx context.Context, lis net.Listener) error {
	logger := Component("grpc-health")
	g.Refresh(ctx)

	go func() {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				g.health.Shutdown()
				g.server.GracefulStop()
				return
			case <-ticker.C:
				g.Refresh(ctx)
			}
		}
	}()

	logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC health service listening")
	if err := g.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc health server: %w", err)
	}
	return nil
}
