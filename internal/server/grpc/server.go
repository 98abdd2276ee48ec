// Package grpc exposes the session service over gRPC with a JSON codec.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/metrics"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/dmitrijs2005/authcore/internal/server/services"
)

// SessionManager is the part of services.SessionService the transport uses.
type SessionManager interface {
	Login(ctx context.Context, identifier, secret, userAgent string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, sessionID string) error
	Authenticate(ctx context.Context, accessToken, refreshToken string) (*services.Principal, error)
	ListSessions(ctx context.Context, accountID string) ([]models.Session, error)
}

type GRPCServer struct {
	address  string
	sessions SessionManager
	logger   logging.Logger
	metrics  metrics.Recorder
}

func NewGRPCServer(a string, l logging.Logger, sm SessionManager, m metrics.Recorder) *GRPCServer {
	if m == nil {
		m = metrics.Nop()
	}
	return &GRPCServer{
		address:  a,
		sessions: sm,
		logger:   l.With("module", "grpc_server"),
		metrics:  m,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.accessTokenInterceptor))

	RegisterSessionServiceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			hs.Shutdown()
			srv.GracefulStop()
		case <-stopped:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}

var _ SessionServiceServer = (*GRPCServer)(nil)
var _ SessionManager = (*services.SessionService)(nil)
