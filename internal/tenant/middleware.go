package tenant

import (
	"errors"
	"net/http"

	"github.com/tillworks/tillsuite/pkg/oauthsdk"
	"github.com/tillworks/tillsuite/pkg/slogx"
)

// Middleware resolves the request tenant and binds the data session before
// the handler runs. Requests on public routes pass through unresolved;
// everything else either resolves or fails here.
func Middleware(rs *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok, err := rs.Resolve(r)
			if err != nil {
				writeResolveError(w, r, err)
				return
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithContext(r.Context(), tc)
			ctx = BindSession(ctx, tc.ID)
			if audit := slogx.AuditFromContext(ctx); audit.TenantID == "" {
				audit.TenantID = tc.ID
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAccess confirms the authenticated user's memberships include the
// resolved tenant. Super-admin roles are the only sanctioned exception.
func RequireAccess(v *AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := v.Validate(r); err != nil {
				writeResolveError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	var oe *oauthsdk.Error
	if !errors.As(err, &oe) {
		slogx.FromContext(r.Context()).Error("tenant resolution failed", "error", err)
		oe = oauthsdk.ErrServerError
	}
	oe.WriteError(w)
}
