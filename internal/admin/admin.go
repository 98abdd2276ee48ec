// Package admin implements the accountctl operator commands: creating and
// deleting accounts and inspecting or revoking their sessions.
package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/server/credentials"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/sessions"
)

// UnitOfWork runs fn with repositories that commit or roll back together
// when the backend supports it.
type UnitOfWork func(ctx context.Context, fn func(ctx context.Context, a accounts.Repository, s sessions.Repository) error) error

// Admin performs account administration against the configured storage.
type Admin struct {
	accounts accounts.Repository
	sessions sessions.Repository
	hasher   credentials.Hasher
	unit     UnitOfWork
}

func New(a accounts.Repository, s sessions.Repository, h credentials.Hasher, unit UnitOfWork) *Admin {
	if unit == nil {
		unit = func(ctx context.Context, fn func(context.Context, accounts.Repository, sessions.Repository) error) error {
			return fn(ctx, a, s)
		}
	}
	return &Admin{accounts: a, sessions: s, hasher: h, unit: unit}
}

// PostgresUnitOfWork runs fn inside a single transaction on db.
func PostgresUnitOfWork(db *sql.DB, rm repomanager.RepositoryManager) UnitOfWork {
	return func(ctx context.Context, fn func(context.Context, accounts.Repository, sessions.Repository) error) error {
		return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return fn(ctx, rm.Accounts(tx), rm.Sessions(tx))
		})
	}
}

func (a *Admin) CreateAccount(ctx context.Context, email, name, password string) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, errors.New("email must not be empty")
	}
	if password == "" {
		return nil, errors.New("password must not be empty")
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	acc, err := a.accounts.Create(ctx, &models.Account{Email: email, Name: name, PasswordHash: hash})
	if err != nil {
		return nil, fmt.Errorf("create account %s: %w", email, err)
	}
	return acc, nil
}

// DeleteAccount invalidates every session of the account and removes it.
// It returns the number of sessions that were still valid.
func (a *Admin) DeleteAccount(ctx context.Context, email string) (int64, error) {
	var revoked int64
	err := a.unit(ctx, func(ctx context.Context, ar accounts.Repository, sr sessions.Repository) error {
		acc, err := ar.GetByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("find account %s: %w", email, err)
		}
		if revoked, err = sr.InvalidateAll(ctx, acc.ID); err != nil {
			return fmt.Errorf("invalidate sessions: %w", err)
		}
		if err := ar.Delete(ctx, acc.ID); err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		return nil
	})
	return revoked, err
}

func (a *Admin) ListSessions(ctx context.Context, email string) ([]models.Session, error) {
	acc, err := a.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find account %s: %w", email, err)
	}
	return a.sessions.ListValid(ctx, acc.ID)
}

func (a *Admin) RevokeSession(ctx context.Context, sessionID string) error {
	if err := a.sessions.Invalidate(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session %s: %w", sessionID, err)
	}
	return nil
}
