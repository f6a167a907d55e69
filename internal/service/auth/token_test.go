package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenManager(t *testing.T, now time.Time) *TokenManager {
	t.Helper()
	m, err := NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	m.now = func() time.Time { return now }
	return m
}

func TestVerifyIssuedToken(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	m := newTestTokenManager(t, now)

	for _, id := range []int64{1, 42, 1 << 40} {
		token, err := m.Issue(id)
		require.NoError(t, err)
		assert.Equal(t, now.Add(time.Hour), token.ExpiresAt)

		got, err := m.Verify(token.Value)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	m := newTestTokenManager(t, now)
	token, err := m.Issue(7)
	require.NoError(t, err)

	for _, later := range []time.Time{token.ExpiresAt, token.ExpiresAt.Add(time.Second), now.Add(48 * time.Hour)} {
		m.now = func() time.Time { return later }
		_, err = m.Verify(token.Value)
		require.ErrorIs(t, err, ErrTokenExpired)
		assert.False(t, errors.Is(err, ErrTokenBadSignature))
	}
}

func TestVerifyBadSignature(t *testing.T) {
	now := time.Now()
	issuer := newTestTokenManager(t, now)
	other, err := NewTokenManager("another-secret", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue(7)
	require.NoError(t, err)

	_, err = other.Verify(token.Value)
	require.ErrorIs(t, err, ErrTokenBadSignature)
}

func TestVerifyRejectsUnexpectedAlgorithm(t *testing.T) {
	m := newTestTokenManager(t, time.Now())
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = m.Verify(signed)
	require.ErrorIs(t, err, ErrTokenBadSignature)
}

func TestVerifyMalformedToken(t *testing.T) {
	m := newTestTokenManager(t, time.Now())
	for _, raw := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.e30"} {
		_, err := m.Verify(raw)
		require.ErrorIs(t, err, ErrTokenMalformed, raw)
	}
}

func TestVerifyRejectsNonNumericSubject(t *testing.T) {
	now := time.Now()
	m := newTestTokenManager(t, now)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = m.Verify(signed)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyRequiresExpiry(t *testing.T) {
	m := newTestTokenManager(t, time.Now())
	claims := jwt.RegisteredClaims{Issuer: tokenIssuer, Subject: "7"}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = m.Verify(signed)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("", time.Hour)
	require.Error(t, err)

	m, err := NewTokenManager("s", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, m.ttl)
}
