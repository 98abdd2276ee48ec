// Package auth implements the token codec: compact HS256-signed JWTs carrying
// either an access or a refresh payload plus an expiry.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// Kind tags a token with the only role it may be used in.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Payload is the application data carried by a token.
// Access tokens fill the account fields and SessionID; refresh tokens carry
// only SessionID.
type Payload struct {
	Kind      Kind   `json:"kind"`
	AccountID string `json:"account_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// AccessPayload builds the payload of an access token for the given account
// and session.
func AccessPayload(a models.AccountPublic, sessionID string) Payload {
	return Payload{Kind: KindAccess, AccountID: a.ID, Email: a.Email, Name: a.Name, SessionID: sessionID}
}

// RefreshPayload builds the payload of a refresh token for a session.
func RefreshPayload(sessionID string) Payload {
	return Payload{Kind: KindRefresh, SessionID: sessionID}
}

// Verified is a successfully verified token.
type Verified struct {
	Payload
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs and verifies tokens.
type Codec interface {
	Sign(p Payload, ttl time.Duration) (string, error)
	Verify(token string, want Kind) (*Verified, error)
}

// Claims is the JWT claim set: registered claims plus the payload.
type Claims struct {
	jwt.RegisteredClaims
	Payload
}

// JWTCodec is an HS256 Codec. It is immutable after construction and safe for
// concurrent use.
type JWTCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

type Option func(*JWTCodec)

// WithIssuer sets the "iss" claim written and required by the codec.
func WithIssuer(issuer string) Option {
	return func(c *JWTCodec) {
		c.issuer = issuer
	}
}

// WithNowFunc overrides the clock used for issuing and validating tokens.
func WithNowFunc(now func() time.Time) Option {
	return func(c *JWTCodec) {
		c.now = now
	}
}

// NewJWTCodec returns a codec bound to secret. The secret is copied.
func NewJWTCodec(secret []byte, opts ...Option) (*JWTCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty signing secret")
	}
	c := &JWTCodec{secret: append([]byte(nil), secret...), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Sign issues a token for p that expires ttl after the current time.
func (c *JWTCodec) Sign(p Payload, ttl time.Duration) (string, error) {
	if p.Kind != KindAccess && p.Kind != KindRefresh {
		return "", fmt.Errorf("auth: unknown token kind %q", p.Kind)
	}

	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   p.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Payload: p,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify parses token, checks its signature, expiry and issuer, and that it
// was issued for the want role.
func (c *JWTCodec) Verify(token string, want Kind) (*Verified, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, classify(err)
	}

	if claims.Kind != want {
		return nil, ErrWrongTokenKind
	}

	v := &Verified{Payload: claims.Payload, ID: claims.ID}
	if claims.IssuedAt != nil {
		v.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		v.ExpiresAt = claims.ExpiresAt.Time
	}
	return v, nil
}

// classify maps jwt parser errors onto the codec's failure taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}

var _ Codec = (*JWTCodec)(nil)
