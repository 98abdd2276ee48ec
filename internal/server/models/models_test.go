package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_State(t *testing.T) {
	s := &Session{Valid: true}
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, "active", s.State().String())

	s.Valid = false
	assert.Equal(t, StateRevoked, s.State())
	assert.Equal(t, "revoked", s.State().String())
	assert.Equal(t, "unknown", SessionState(42).String())
}

func TestAccount_Public(t *testing.T) {
	a := &Account{ID: "a1", Email: "jane.doe@example.com", Name: "Jane Doe", PasswordHash: "$2a$secret"}
	assert.Equal(t, AccountPublic{ID: "a1", Email: "jane.doe@example.com", Name: "Jane Doe"}, a.Public())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane.doe@example.com", NormalizeEmail("  Jane.Doe@Example.COM "))
}
