// Package grpcserver runs the operational gRPC endpoint (health checking and reflection).
package grpcserver

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-checked service besides the overall "" entry.
const ServiceName = "notes"

const (
	pingTimeout  = 2 * time.Second
	stopDeadline = 5 * time.Second
)

// Pinger reports store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health serves grpc.health.v1 backed by store pings.
type Health struct {
	srv *grpc.Server
	hs  *health.Server
	db  Pinger
	log *zap.Logger
}

// NewHealth builds the gRPC server with logging and recovery interceptors.
// Reflection is registered only when dev is set.
func NewHealth(db Pinger, log *zap.Logger, dev bool, opts ...grpc.ServerOption) *Health {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(RecoverStream(log), LoggingStream(log)),
	)
	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if dev {
		reflection.Register(s)
	}
	return &Health{srv: s, hs: hs, db: db, log: log}
}

// Check pings the store once and publishes the result.
func (h *Health) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("health: store unreachable", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.hs.SetServingStatus("", st)
	h.hs.SetServingStatus(ServiceName, st)
	return st
}

// Watch re-checks the store every interval until ctx is done.
func (h *Health) Watch(ctx context.Context, interval time.Duration) {
	h.Check(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			h.Check(ctx)
		}
	}
}

// Serve blocks serving lis.
func (h *Health) Serve(lis net.Listener) error {
	return h.srv.Serve(lis)
}

// Shutdown reports NOT_SERVING, then stops gracefully with a forced stop after a deadline.
func (h *Health) Shutdown() {
	h.hs.Shutdown()
	done := make(chan struct{})
	go func() {
		h.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopDeadline):
		h.srv.Stop()
	}
}
