package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/services"
)

type ctxKey string

const principalKey ctxKey = "principal"

// publicMethods do not require an access token.
var publicMethods = map[string]struct{}{
	LoginMethod:   {},
	RefreshMethod: {},
}

// PrincipalFromContext returns the caller set by the access token interceptor.
func PrincipalFromContext(ctx context.Context) (*services.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*services.Principal)
	return p, ok && p != nil
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

func bearerToken(ctx context.Context) string {
	v := firstMetadata(ctx, common.AuthorizationHeaderName)
	if len(v) < len(common.BearerPrefix) || !strings.EqualFold(v[:len(common.BearerPrefix)], common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(common.BearerPrefix):])
}

// accessTokenInterceptor authenticates every SessionService method except the
// public ones. An expired access token is replaced transparently when the
// caller also sends x-refresh; the new token is returned in the
// x-access-token response header.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !strings.HasPrefix(info.FullMethod, "/"+ServiceName+"/") {
		return handler(ctx, req)
	}
	if _, ok := publicMethods[info.FullMethod]; ok {
		return handler(ctx, req)
	}

	accessToken := bearerToken(ctx)
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	principal, err := s.sessions.Authenticate(ctx, accessToken, firstMetadata(ctx, common.RefreshHeaderName))
	if err != nil {
		return nil, toStatus(err)
	}

	if principal.ReissuedAccessToken != "" {
		header := metadata.Pairs(common.ReissuedAccessTokenHeaderName, principal.ReissuedAccessToken)
		if err := grpc.SetHeader(ctx, header); err != nil {
			s.logger.Warn(ctx, "set reissued token header", "error", err)
		}
	}

	return handler(context.WithValue(ctx, principalKey, principal), req)
}

// metricsInterceptor records handling latency per method and status code and
// tags the request context with the method for downstream log records.
func (s *GRPCServer) metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	ctx = logging.ContextWith(ctx, "method", info.FullMethod)
	resp, err := handler(ctx, req)
	code := status.Code(err)
	s.metrics.ObserveRPC(info.FullMethod, code.String(), time.Since(start))
	if code != codes.OK {
		s.logger.Debug(ctx, "rpc failed", "code", code.String())
	}
	return resp, err
}

// toStatus maps service errors to gRPC statuses. Every authentication failure
// gets the same message.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrAccountGone):
		return status.Error(codes.NotFound, "account not found")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
