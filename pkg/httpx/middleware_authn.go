package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tillworks/tillsuite/pkg/jwtx"
	"github.com/tillworks/tillsuite/pkg/slogx"
)

// AuthnMiddleware is the request authentication gate. It extracts and
// verifies the bearer token, then populates a request-scoped Identity from
// the claims. Every claim needed downstream is read here once; handlers never
// touch the raw token.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("jwt verify failed", "err", err)
				if errors.Is(err, jwtx.ErrExpired) {
					writeBearerError(w, http.StatusUnauthorized, "token_expired", "token expired")
					return
				}
				writeBearerError(w, http.StatusUnauthorized, "invalid_token", "token verification failed")
				return
			}

			// Verify canonicalizes the legacy userId spelling into sub; if
			// neither was present the token identifies nobody.
			if claims.Subject == "" {
				writeBearerError(w, http.StatusUnauthorized, "invalid_token", "token has no subject")
				return
			}

			// The verifier already enforces expiry; the gate rechecks it so
			// a claim set arriving through any other Verifier implementation
			// still cannot pass with a stale exp.
			if err := claims.ValidateExpiry(); err != nil {
				writeBearerError(w, http.StatusUnauthorized, "token_expired", "token expired")
				return
			}

			identity := Identity{
				UserID:       claims.Subject,
				Email:        claims.Email,
				Name:         claims.Name,
				TenantID:     claims.TenantID,
				ClientID:     claims.ClientID,
				Issuer:       claims.Issuer,
				Audience:     claims.Audience,
				Scope:        claims.Scope,
				Scopes:       ParseSpaceDelimitedFields(claims.Scope),
				Roles:        claims.Roles,
				Permissions:  claims.Permissions,
				Capabilities: claims.Capabilities,
			}

			audit := slogx.AuditFromContext(ctx)
			audit.UserID = identity.UserID
			if audit.TenantID == "" {
				audit.TenantID = identity.TenantID
			}

			ctx = contextWithIdentity(ctx, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, CtxKeyIdentity, id)
	ctx = context.WithValue(ctx, CtxKeyUserID, id.UserID)
	ctx = context.WithValue(ctx, CtxKeyScopes, id.Scopes)
	return ctx
}

// RFC 6750-style bearer error: machine-readable code in both the
// WWW-Authenticate header and the JSON body.
func writeBearerError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	WriteJSONError(w, status, code, desc)
}
