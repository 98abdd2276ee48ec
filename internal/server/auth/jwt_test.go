package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authcore/internal/server/models"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCodec(t *testing.T, secret string, clock *fakeClock) *JWTCodec {
	t.Helper()
	c, err := NewJWTCodec([]byte(secret), WithIssuer("authcore-test"), WithNowFunc(clock.Now))
	require.NoError(t, err)
	return c
}

func testAccount() models.AccountPublic {
	return models.AccountPublic{ID: "acc-1", Email: "jane.doe@example.com", Name: "Jane Doe"}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, "super-secret", clock)

	tests := []struct {
		name    string
		payload Payload
	}{
		{name: "access", payload: AccessPayload(testAccount(), "sess-1")},
		{name: "refresh", payload: RefreshPayload("sess-1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := codec.Sign(tt.payload, 15*time.Minute)
			require.NoError(t, err)

			clock.Advance(5 * time.Minute)
			defer clock.Advance(-5 * time.Minute)

			got, err := codec.Verify(tok, tt.payload.Kind)
			require.NoError(t, err)
			assert.Equal(t, tt.payload, got.Payload)
			assert.NotEmpty(t, got.ID)
			assert.Equal(t, time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC), got.IssuedAt.UTC())
			assert.Equal(t, time.Date(2026, 10, 15, 12, 15, 0, 0, time.UTC), got.ExpiresAt.UTC())
		})
	}
}

func TestVerify_ExpiredAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, "k", clock)

	tok, err := codec.Sign(RefreshPayload("s1"), time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Minute + time.Second)

	_, err = codec.Verify(tok, KindRefresh)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_ZeroTTLIsExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, "k", clock)

	tok, err := codec.Sign(AccessPayload(testAccount(), "s1"), 0)
	require.NoError(t, err)

	_, err = codec.Verify(tok, KindAccess)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tok, err := newTestCodec(t, "right-secret", clock).Sign(RefreshPayload("s1"), time.Hour)
	require.NoError(t, err)

	_, err = newTestCodec(t, "wrong-secret", clock).Verify(tok, KindRefresh)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerify_TamperedPayload(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, "k", clock)

	tok, err := codec.Sign(AccessPayload(testAccount(), "s1"), time.Hour)
	require.NoError(t, err)

	other, err := codec.Sign(AccessPayload(models.AccountPublic{ID: "acc-2", Email: "mallory@example.com"}, "s2"), time.Hour)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	otherParts := strings.Split(other, ".")
	forged := parts[0] + "." + otherParts[1] + "." + parts[2]

	_, err = codec.Verify(forged, KindAccess)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerify_Malformed(t *testing.T) {
	codec := newTestCodec(t, "k", &fakeClock{t: time.Now()})

	for _, tok := range []string{"", "not.a.jwt", "garbage", "a.b"} {
		_, err := codec.Verify(tok, KindRefresh)
		require.ErrorIs(t, err, ErrMalformedToken, "token %q", tok)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, "k", clock)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "authcore-test",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
		Payload: RefreshPayload("s1"),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = codec.Verify(tok, KindRefresh)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerify_KindMismatch(t *testing.T) {
	codec := newTestCodec(t, "k", &fakeClock{t: time.Now()})

	access, err := codec.Sign(AccessPayload(testAccount(), "s1"), time.Hour)
	require.NoError(t, err)
	_, err = codec.Verify(access, KindRefresh)
	require.ErrorIs(t, err, ErrWrongTokenKind)

	refresh, err := codec.Sign(RefreshPayload("s1"), time.Hour)
	require.NoError(t, err)
	_, err = codec.Verify(refresh, KindAccess)
	require.ErrorIs(t, err, ErrWrongTokenKind)
}

func TestVerify_MissingExpiry(t *testing.T) {
	codec := newTestCodec(t, "k", &fakeClock{t: time.Now()})

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "authcore-test"},
		Payload:          RefreshPayload("s1"),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = codec.Verify(tok, KindRefresh)
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestSign_DistinctTokensForSamePayload(t *testing.T) {
	codec := newTestCodec(t, "k", &fakeClock{t: time.Now()})

	a, err := codec.Sign(RefreshPayload("s1"), time.Hour)
	require.NoError(t, err)
	b, err := codec.Sign(RefreshPayload("s1"), time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSign_UnknownKind(t *testing.T) {
	codec := newTestCodec(t, "k", &fakeClock{t: time.Now()})

	_, err := codec.Sign(Payload{Kind: "id"}, time.Hour)
	require.Error(t, err)
}

func TestNewJWTCodec_EmptySecret(t *testing.T) {
	_, err := NewJWTCodec(nil)
	require.Error(t, err)
}

func TestNewJWTCodec_CopiesSecret(t *testing.T) {
	secret := []byte("mutable")
	clock := &fakeClock{t: time.Now()}
	codec, err := NewJWTCodec(secret, WithNowFunc(clock.Now))
	require.NoError(t, err)

	tok, err := codec.Sign(RefreshPayload("s1"), time.Hour)
	require.NoError(t, err)

	secret[0] = 'X'

	_, err = codec.Verify(tok, KindRefresh)
	require.NoError(t, err)
}
