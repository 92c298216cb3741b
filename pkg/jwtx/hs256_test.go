package jwtx

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://auth.test.local"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestSigner(t *testing.T) *HS256 {
	t.Helper()
	h, err := NewHS256(testSecret, testIssuer)
	require.NoError(t, err)
	return h
}

func TestNewHS256RejectsWeakSecret(t *testing.T) {
	t.Parallel()

	_, err := NewHS256([]byte("too-short"), testIssuer)
	require.ErrorIs(t, err, ErrWeakSecret)

	_, err = NewHS256(nil, testIssuer)
	require.ErrorIs(t, err, ErrWeakSecret)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Parallel()
	h := newTestSigner(t)

	now := time.Now().UTC().Truncate(time.Second)
	claims := NewAccessClaims("user-1", "web-portal", "tenant-1", "openid profile", time.Hour, testIssuer, now)
	claims.Email = "jo@example.com"
	claims.Roles = []string{"manager"}

	raw, err := h.Sign(claims)
	require.NoError(t, err)

	got, err := h.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "tenant-1", got.TenantID)
	require.Equal(t, "web-portal", got.ClientID)
	require.Equal(t, "openid profile", got.Scope)
	require.Equal(t, "jo@example.com", got.Email)
	require.Equal(t, []string{"manager"}, got.Roles)
	require.Equal(t, testIssuer, got.Issuer)
	require.NotEmpty(t, got.ID)
	require.Equal(t, now.Add(time.Hour).Unix(), got.ExpiresAt.Unix())
	require.NoError(t, got.ValidateExpiry())
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	t.Parallel()
	h := newTestSigner(t)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewHS256([]byte("ffffffffffffffffffffffffffffffff"), testIssuer)
		require.NoError(t, err)
		raw, err := other.Sign(NewAccessClaims("u", "c", "t", "openid", time.Hour, testIssuer, time.Now()))
		require.NoError(t, err)

		_, err = h.Verify(raw)
		require.ErrorIs(t, err, ErrInvalidSig)
	})

	t.Run("tampered payload", func(t *testing.T) {
		raw, err := h.Sign(NewAccessClaims("u", "c", "t", "openid", time.Hour, testIssuer, time.Now()))
		require.NoError(t, err)

		tampered := []byte(raw)
		mid := len(tampered) / 2
		if tampered[mid] == 'A' {
			tampered[mid] = 'B'
		} else {
			tampered[mid] = 'A'
		}
		_, err = h.Verify(string(tampered))
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := h.Verify("not.a.jwt")
		require.ErrorIs(t, err, ErrMalformed)

		_, err = h.Verify("")
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("expired token fails inside Verify", func(t *testing.T) {
		raw, err := h.Sign(NewAccessClaims("u", "c", "t", "openid", time.Minute, testIssuer, time.Now().UTC().Add(-time.Hour)))
		require.NoError(t, err)

		_, err = h.Verify(raw)
		require.ErrorIs(t, err, ErrExpired)
	})

	t.Run("not yet valid token fails inside Verify", func(t *testing.T) {
		raw, err := h.Sign(NewAccessClaims("u", "c", "t", "openid", time.Hour, testIssuer, time.Now().UTC().Add(time.Hour)))
		require.NoError(t, err)

		_, err = h.Verify(raw)
		require.ErrorIs(t, err, ErrNotYetValid)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		other, err := NewHS256(testSecret, "https://somewhere-else.test")
		require.NoError(t, err)
		raw, err := other.Sign(NewAccessClaims("u", "c", "t", "openid", time.Hour, "https://somewhere-else.test", time.Now()))
		require.NoError(t, err)

		_, err = h.Verify(raw)
		require.ErrorIs(t, err, ErrIssuer)
	})
}

func TestVerifyCanonicalizesLegacyClaims(t *testing.T) {
	t.Parallel()
	h := newTestSigner(t)

	now := time.Now().UTC()

	t.Run("legacy spellings fold into standard fields", func(t *testing.T) {
		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    testIssuer,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			LegacyUserID:   "legacy-user",
			LegacyTenantID: "legacy-tenant",
		}
		raw, err := h.Sign(claims)
		require.NoError(t, err)

		got, err := h.Verify(raw)
		require.NoError(t, err)
		require.Equal(t, "legacy-user", got.Subject)
		require.Equal(t, "legacy-tenant", got.TenantID)
		require.Empty(t, got.LegacyUserID)
		require.Empty(t, got.LegacyTenantID)
	})

	t.Run("standard spelling wins when both present", func(t *testing.T) {
		claims := NewAccessClaims("std-user", "c", "std-tenant", "openid", time.Hour, testIssuer, now)
		claims.LegacyUserID = "legacy-user"
		claims.LegacyTenantID = "legacy-tenant"
		raw, err := h.Sign(claims)
		require.NoError(t, err)

		got, err := h.Verify(raw)
		require.NoError(t, err)
		require.Equal(t, "std-user", got.Subject)
		require.Equal(t, "std-tenant", got.TenantID)
	})
}

func TestValidateExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	t.Run("expired", func(t *testing.T) {
		c := NewAccessClaims("u", "c", "t", "openid", time.Minute, testIssuer, now.Add(-time.Hour))
		require.ErrorIs(t, c.ValidateExpiry(), ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := NewAccessClaims("u", "c", "t", "openid", time.Hour, testIssuer, now.Add(time.Hour))
		require.ErrorIs(t, c.ValidateExpiry(), ErrNotYetValid)
	})

	t.Run("current", func(t *testing.T) {
		c := NewAccessClaims("u", "c", "t", "openid", time.Hour, testIssuer, now)
		require.NoError(t, c.ValidateExpiry())
	})

	t.Run("no bounds", func(t *testing.T) {
		var c Claims
		require.NoError(t, c.ValidateExpiry())
	})
}
