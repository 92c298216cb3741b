package httpx

import "context"

type ctxKey string

const (
	CtxKeyIdentity ctxKey = "identity"
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyScopes   ctxKey = "scopes"
)

// Identity is the request-scoped identity populated by the authentication
// gate from a verified bearer token. Everything here comes straight from the
// token claims; no store lookup is involved.
type Identity struct {
	UserID       string
	Email        string
	Name         string
	TenantID     string
	ClientID     string
	Issuer       string
	Audience     []string
	Scope        string
	Scopes       []string
	Roles        []string
	Permissions  []string
	Capabilities []string
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(CtxKeyIdentity).(Identity)
	return id, ok
}

func scopesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyScopes).([]string); ok {
		return v
	}
	return nil
}
