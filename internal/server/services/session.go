// Package services contains server-side business logic. This file implements
// SessionService: login, access token refresh, logout and request
// authentication on top of the credential verifier, token codec and session
// store.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/auth"
	"github.com/dmitrijs2005/authcore/internal/server/config"
	"github.com/dmitrijs2005/authcore/internal/server/credentials"
	"github.com/dmitrijs2005/authcore/internal/server/metrics"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/sessions"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Principal is the caller identity carried by a verified access token.
// ReissuedAccessToken is set when Authenticate had to mint a new access token
// from the refresh token.
type Principal struct {
	AccountID           string
	Email               string
	Name                string
	SessionID           string
	IssuedAt            time.Time
	ExpiresAt           time.Time
	ReissuedAccessToken string
}

// AccountReader loads accounts by ID.
type AccountReader interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

// SessionService issues, refreshes and revokes sessions.
//
// Errors returned to callers are coarse: common.ErrorUnauthorized for any
// credential or token problem, common.ErrAccountGone when a refresh finds the
// account deleted, common.ErrorNotFound when logging out an unknown session
// and common.ErrorInternal for storage failures. The precise cause is logged.
type SessionService struct {
	verifier credentials.Verifier
	accounts AccountReader
	sessions sessions.Repository
	codec    auth.Codec
	logger   logging.Logger
	metrics  metrics.Recorder

	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

type SessionServiceOption func(*SessionService)

func WithLogger(l logging.Logger) SessionServiceOption {
	return func(s *SessionService) { s.logger = l }
}

func WithMetrics(m metrics.Recorder) SessionServiceOption {
	return func(s *SessionService) { s.metrics = m }
}

// NewSessionService wires the service. Token lifetimes come from cfg.
func NewSessionService(
	verifier credentials.Verifier,
	accounts AccountReader,
	store sessions.Repository,
	codec auth.Codec,
	cfg *config.Config,
	opts ...SessionServiceOption,
) *SessionService {
	s := &SessionService{
		verifier:                     verifier,
		accounts:                     accounts,
		sessions:                     store,
		codec:                        codec,
		logger:                       logging.Nop(),
		metrics:                      metrics.Nop(),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("module", "session_service")
	return s
}

// Login verifies the credentials, opens a session and returns its token pair.
// No session is created when verification fails.
func (s *SessionService) Login(ctx context.Context, identifier, secret, userAgent string) (*TokenPair, error) {
	account, err := s.verifier.Verify(ctx, identifier, secret)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrInvalidCredentials) {
			s.logger.Warn(ctx, "login rejected", "reason", err.Error())
			s.metrics.Login(metrics.OutcomeUnauthorized)
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "login: verify credentials", "error", err)
		s.metrics.Login(metrics.OutcomeError)
		return nil, common.ErrorInternal
	}

	session, err := s.sessions.Create(ctx, account.ID, userAgent)
	if err != nil {
		s.logger.Error(ctx, "login: create session", "account_id", account.ID, "error", err)
		s.metrics.Login(metrics.OutcomeError)
		return nil, common.ErrorInternal
	}

	access, err := s.codec.Sign(auth.AccessPayload(account.Public(), session.ID), s.accessTokenValidityDuration)
	if err != nil {
		s.logger.Error(ctx, "login: sign access token", "error", err)
		s.metrics.Login(metrics.OutcomeError)
		return nil, common.ErrorInternal
	}
	refresh, err := s.codec.Sign(auth.RefreshPayload(session.ID), s.refreshTokenValidityDuration)
	if err != nil {
		s.logger.Error(ctx, "login: sign refresh token", "error", err)
		s.metrics.Login(metrics.OutcomeError)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "session created", "session_id", session.ID, "account_id", account.ID)
	s.metrics.Login(metrics.OutcomeSuccess)
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh mints a new access token from a refresh token whose session is
// still valid. The refresh token itself is not rotated and stays usable until
// it expires or the session is revoked.
//
// The session check and the signing are not atomic: a Logout that lands
// between them does not stop this call from returning a token.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	token, err := s.refresh(ctx, refreshToken)
	switch {
	case err == nil:
		s.metrics.Refresh(metrics.OutcomeSuccess)
	case errors.Is(err, common.ErrorUnauthorized):
		s.metrics.Refresh(metrics.OutcomeUnauthorized)
	case errors.Is(err, common.ErrAccountGone):
		s.metrics.Refresh(metrics.OutcomeAccountGone)
	default:
		s.metrics.Refresh(metrics.OutcomeError)
	}
	return token, err
}

func (s *SessionService) refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.codec.Verify(refreshToken, auth.KindRefresh)
	if err != nil {
		s.logger.Warn(ctx, "refresh rejected", "reason", err.Error())
		return "", common.ErrorUnauthorized
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "refresh rejected", "reason", "session not found", "session_id", claims.SessionID)
			return "", common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "refresh: load session", "session_id", claims.SessionID, "error", err)
		return "", common.ErrorInternal
	}
	if session.State() != models.StateActive {
		s.logger.Warn(ctx, "refresh rejected", "reason", "session revoked", "session_id", session.ID)
		return "", common.ErrorUnauthorized
	}

	account, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "refresh rejected", "reason", "account gone", "account_id", session.AccountID)
			return "", common.ErrAccountGone
		}
		s.logger.Error(ctx, "refresh: load account", "account_id", session.AccountID, "error", err)
		return "", common.ErrorInternal
	}

	access, err := s.codec.Sign(auth.AccessPayload(account.Public(), session.ID), s.accessTokenValidityDuration)
	if err != nil {
		s.logger.Error(ctx, "refresh: sign access token", "error", err)
		return "", common.ErrorInternal
	}
	return access, nil
}

// Logout invalidates the session. Logging out twice is not an error.
func (s *SessionService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Invalidate(ctx, sessionID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.Logout(metrics.OutcomeNotFound)
			return common.ErrorNotFound
		}
		s.logger.Error(ctx, "logout: invalidate session", "session_id", sessionID, "error", err)
		s.metrics.Logout(metrics.OutcomeError)
		return common.ErrorInternal
	}
	s.logger.Info(ctx, "session invalidated", "session_id", sessionID)
	s.metrics.Logout(metrics.OutcomeSuccess)
	return nil
}

// Authenticate verifies an access token. When it has expired and a refresh
// token is supplied, a new access token is minted through Refresh and
// returned in Principal.ReissuedAccessToken.
func (s *SessionService) Authenticate(ctx context.Context, accessToken, refreshToken string) (*Principal, error) {
	claims, err := s.codec.Verify(accessToken, auth.KindAccess)
	if err == nil {
		return principal(claims), nil
	}
	if !errors.Is(err, auth.ErrTokenExpired) || refreshToken == "" {
		s.logger.Debug(ctx, "access token rejected", "reason", err.Error())
		return nil, common.ErrorUnauthorized
	}

	reissued, err := s.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	claims, err = s.codec.Verify(reissued, auth.KindAccess)
	if err != nil {
		s.logger.Error(ctx, "authenticate: verify reissued token", "error", err)
		return nil, common.ErrorInternal
	}
	p := principal(claims)
	p.ReissuedAccessToken = reissued
	return p, nil
}

// ListSessions returns the valid sessions of an account.
func (s *SessionService) ListSessions(ctx context.Context, accountID string) ([]models.Session, error) {
	list, err := s.sessions.ListValid(ctx, accountID)
	if err != nil {
		s.logger.Error(ctx, "list sessions", "account_id", accountID, "error", err)
		return nil, common.ErrorInternal
	}
	return list, nil
}

func principal(v *auth.Verified) *Principal {
	return &Principal{
		AccountID: v.AccountID,
		Email:     v.Email,
		Name:      v.Name,
		SessionID: v.SessionID,
		IssuedAt:  v.IssuedAt,
		ExpiresAt: v.ExpiresAt,
	}
}
