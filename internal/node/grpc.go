package node

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// LedgerHealthService is the gRPC health service name that tracks chain
// integrity. The empty service name reports process liveness only.
const LedgerHealthService = "hotelledger.Ledger"

// HealthServer serves the standard gRPC health protocol and reflection so
// orchestrators and grpcurl can check a node without the HTTP API.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewHealthServer builds the gRPC server. The ledger starts as SERVING until
// SetLedgerValid says otherwise.
func NewHealthServer(logger *zap.Logger) *HealthServer {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(loggingInterceptor(logger)),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(LedgerHealthService, grpc_health_v1.HealthCheckResponse_SERVING)

	// gRPC reflection (for grpcurl and Evans)
	reflection.Register(srv)

	return &HealthServer{srv: srv, health: hs, logger: logger}
}

// SetLedgerValid flips the ledger service between SERVING and NOT_SERVING.
func (s *HealthServer) SetLedgerValid(valid bool) {
	st := grpc_health_v1.HealthCheckResponse_SERVING
	if !valid {
		st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(LedgerHealthService, st)
}

// Serve accepts connections on lis until Stop is called.
func (s *HealthServer) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}

// loggingInterceptor returns a gRPC unary server interceptor that logs each call.
func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("grpc",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)),
		)
		return resp, err
	}
}
