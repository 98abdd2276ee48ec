// Package credentials checks an identifier/secret pair against stored accounts.
package credentials

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/authcore/internal/common"
)

// Hasher is a one-way password hash.
type Hasher interface {
	Hash(secret string) (string, error)
	// Compare returns common.ErrInvalidCredentials when secret does not
	// match hash.
	Compare(hash, secret string) error
}

// BcryptHasher hashes with bcrypt at the configured cost.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), h.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

func (h *BcryptHasher) Compare(hash, secret string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return common.ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("bcrypt: %w", err)
	}
	return nil
}

var _ Hasher = (*BcryptHasher)(nil)
