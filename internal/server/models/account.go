package models

import (
	"strings"
	"time"
)

// Account is a registered user as stored by the account repository.
// The auth core only reads accounts.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// AccountPublic is the subset of Account that may be embedded in access tokens.
type AccountPublic struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Public returns the account fields safe to expose to clients.
func (a *Account) Public() AccountPublic {
	return AccountPublic{ID: a.ID, Email: a.Email, Name: a.Name}
}

// NormalizeEmail returns the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
