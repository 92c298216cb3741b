package domain

import "time"

// TokenPair is what the token endpoint returns: the short-lived access token
// (JWT) and, for user-delegated grants, the opaque refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	Scope        string
}

// RefreshToken models the stored refresh token record. Like authorization
// codes, only the fingerprint is persisted.
type RefreshToken struct {
	ID        string
	TokenHash string
	ClientID  string
	UserID    string
	TenantID  string
	Scopes    []string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token's window has passed at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
