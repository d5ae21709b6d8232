// Package grpcserver exposes imagehub's readiness over the standard gRPC
// health protocol.
package grpcserver

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"imagehub/internal/connectivity"
)

// ServiceName is the health service name clients check.
const ServiceName = "imagehub.ImageService"

// HealthReporter mirrors connectivity into the health server: SERVING
// while online, NOT_SERVING while offline.
type HealthReporter struct {
	Health  *health.Server
	checker connectivity.Checker
	logger  *slog.Logger
}

func NewHealthReporter(checker connectivity.Checker, logger *slog.Logger) *HealthReporter {
	if logger == nil {
		logger = slog.Default()
	}
	r := &HealthReporter{
		Health:  health.NewServer(),
		checker: checker,
		logger:  logger.With("component", "grpc-health"),
	}
	r.Sync()
	return r
}

// Register attaches the health service to s.
func (r *HealthReporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, r.Health)
}

// Sync sets the status from the checker's current answer.
func (r *HealthReporter) Sync() healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if r.checker.IsConnected() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	r.Health.SetServingStatus("", status)
	r.Health.SetServingStatus(ServiceName, status)
	return status
}

// Run re-syncs on every notification until ctx is done, then marks every
// service NOT_SERVING.
func (r *HealthReporter) Run(ctx context.Context, n connectivity.Notifier) error {
	ch, unsubscribe := n.Subscribe()
	defer unsubscribe()

	last := r.Sync()
	for {
		select {
		case <-ctx.Done():
			r.Health.Shutdown()
			return ctx.Err()
		case <-ch:
			if status := r.Sync(); status != last {
				r.logger.Info("health status changed", "status", status.String())
				last = status
			}
		}
	}
}

// LoggingInterceptor logs every unary call with its duration and error.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	logger = logger.With("component", "grpc")
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		attrs := []any{"method", info.FullMethod, "duration", time.Since(start)}
		if err != nil {
			logger.Warn("rpc failed", append(attrs, "error", err)...)
		} else {
			logger.Debug("rpc", attrs...)
		}
		return resp, err
	}
}
