package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// Verifier resolves an identifier/secret pair to an account.
type Verifier interface {
	// Verify returns common.ErrorNotFound for an unknown identifier and
	// common.ErrInvalidCredentials for a wrong secret.
	Verify(ctx context.Context, identifier, secret string) (*models.Account, error)
}

// AccountFinder is the account lookup the verifier needs.
type AccountFinder interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

// PasswordVerifier checks secrets against account password hashes.
type PasswordVerifier struct {
	accounts AccountFinder
	hasher   Hasher

	dummyOnce sync.Once
	dummyHash string
}

func NewPasswordVerifier(accounts AccountFinder, hasher Hasher) *PasswordVerifier {
	return &PasswordVerifier{accounts: accounts, hasher: hasher}
}

func (v *PasswordVerifier) Verify(ctx context.Context, identifier, secret string) (*models.Account, error) {
	account, err := v.accounts.GetByEmail(ctx, models.NormalizeEmail(identifier))
	if errors.Is(err, common.ErrorNotFound) {
		// unknown accounts still pay for one comparison
		_ = v.hasher.Compare(v.dummy(), secret)
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	if err := v.hasher.Compare(account.PasswordHash, secret); err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}
	return account, nil
}

func (v *PasswordVerifier) dummy() string {
	v.dummyOnce.Do(func() {
		h, err := v.hasher.Hash("authcore-dummy-secret")
		if err == nil {
			v.dummyHash = h
		}
	})
	return v.dummyHash
}

var _ Verifier = (*PasswordVerifier)(nil)
