// Package common defines shared constants and sentinel errors used across
// repositories, services and the transport layer. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors returned across the service boundary.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrAccountGone is returned by refresh when the refresh token and session
	// are valid but the owning account no longer exists.
	ErrAccountGone = errors.New("account gone")

	// Credential errors. Never returned to external callers directly.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
