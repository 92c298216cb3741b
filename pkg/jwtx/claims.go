package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants for the suite's OAuth2 flows.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = time.Hour

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Claims are the access-token claims shared across the suite. The token is
// self-contained: every claim an authorization decision needs is embedded, so
// request verification never touches the grant stores.
type Claims struct {
	jwt.RegisteredClaims

	// Scope is the space-separated scope string granted to the token.
	Scope string `json:"scope,omitempty"`

	// TenantID pins the token to a single tenant. It must match the tenant
	// resolved for any request that presents this token.
	TenantID string `json:"tenant_id,omitempty"`

	// ClientID identifies the OAuth2 client the token was issued to.
	ClientID string `json:"client_id,omitempty"`

	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`

	Roles        []string `json:"roles,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`

	// Legacy claim spellings still minted by the suite's older admin token
	// path. They are read here and nowhere else; Canonicalize folds them into
	// the standard fields so downstream code sees a single schema.
	LegacyUserID   string `json:"userId,omitempty"`
	LegacyTenantID string `json:"tenantId,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for an access token.
func NewAccessClaims(
	subject, clientID, tenantID string,
	scope string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{clientID},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Scope:    scope,
		TenantID: tenantID,
		ClientID: clientID,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// Canonicalize is the translation boundary for the dual claim spellings:
// tokens minted with the legacy "userId"/"tenantId" names are folded into the
// standard "sub"/"tenant_id" fields, preferring the standard spelling when
// both are present. Call it once, right after verification; business logic
// only ever reads the canonical fields.
func (c *Claims) Canonicalize() {
	if c.Subject == "" {
		c.Subject = c.LegacyUserID
	}
	if c.TenantID == "" {
		c.TenantID = c.LegacyTenantID
	}
	c.LegacyUserID = ""
	c.LegacyTenantID = ""
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
