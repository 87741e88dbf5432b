// Package health exposes the standard gRPC health service backed by database
// pings, and a small client for probing it.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// ServiceName is the service reported alongside the overall ("") status.
const ServiceName = "fabric.console.v1.Console"

const (
	defaultInterval = 15 * time.Second
	pingTimeout     = 5 * time.Second
)

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves grpc.health.v1 and keeps its status in step with the database.
type Server struct {
	db       Pinger
	interval time.Duration
	grpc     *grpc.Server
	status   *health.Server
}

// NewServer creates a health server. A zero interval defaults to 15s.
func NewServer(db Pinger, interval time.Duration) *Server {
	if interval <= 0 {
		interval = defaultInterval
	}
	gs := grpc.NewServer(grpc.KeepaliveParams(keepalive.ServerParameters{
		Time:    2 * time.Minute,
		Timeout: 10 * time.Second,
	}))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{db: db, interval: interval, grpc: gs, status: hs}
}

// Check pings the database once and publishes the result.
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.db.Ping(ctx); err != nil {
		slog.Warn("gRPC health check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.status.SetServingStatus("", status)
	s.status.SetServingStatus(ServiceName, status)
	return status
}

// Serve accepts connections on lis until ctx is cancelled, re-checking the
// database every interval.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.Check(ctx)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.status.Shutdown()
				s.grpc.GracefulStop()
				return
			case <-ticker.C:
				s.Check(ctx)
			}
		}
	}()

	slog.Info("gRPC health server listening", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve grpc health: %w", err)
	}
	return nil
}

// Query asks the health service at addr for the status of service.
func Query(ctx context.Context, addr, service string, opts ...grpc.DialOption) (healthpb.HealthCheckResponse_ServingStatus, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("create grpc client for %s: %w", addr, err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Debug("Failed to close grpc connection", "error", closeErr)
		}
	}()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check %s: %w", addr, err)
	}
	return resp.GetStatus(), nil
}
