package auth

import "errors"

// Token verification failures. Callers outside the auth core only ever see
// common.ErrorUnauthorized; these exist for logging.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("bad token signature")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenKind = errors.New("wrong token kind")
)
