package domain

import "time"

// AuthorizationCode is a short-lived, single-use grant record. Only the
// SHA-256 fingerprint of the opaque code is stored; the code itself exists
// solely in the redirect back to the client.
type AuthorizationCode struct {
	ID                  string
	CodeHash            string
	ClientID            string
	UserID              string
	TenantID            string
	RedirectURI         string
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
	ExpiresAt           time.Time
	CreatedAt           time.Time
}

// Expired reports whether the code's window has passed at now.
func (c AuthorizationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
