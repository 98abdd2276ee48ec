package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const userAgentHeaderName = "user-agent"

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	tokens, err := s.sessions.Login(ctx, req.Email, req.Password, firstMetadata(ctx, userAgentHeaderName))
	if err != nil {
		return nil, toStatus(err)
	}
	return &LoginResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *RefreshRequest) (*RefreshResponse, error) {
	token, err := s.sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RefreshResponse{AccessToken: token}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *LogoutRequest) (*LogoutResponse, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	if err := s.sessions.Logout(ctx, p.SessionID); err != nil {
		return nil, toStatus(err)
	}
	return &LogoutResponse{}, nil
}

func (s *GRPCServer) ListSessions(ctx context.Context, _ *ListSessionsRequest) (*ListSessionsResponse, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	list, err := s.sessions.ListSessions(ctx, p.AccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListSessionsResponse{Sessions: list}, nil
}
