package tenant

import (
	"context"
	"errors"

	"github.com/tillworks/tillsuite/internal/auth/domain"
)

// ErrNoSession is returned by SessionTenantID when no tenant has been bound
// to the context. Tenant-scoped store queries treat it as a programming
// error rather than falling back to an unscoped read.
var ErrNoSession = errors.New("tenant: no session bound to context")

// Context is the resolved tenant carried through a request.
type Context struct {
	ID   string
	Name string
	Code string
}

type ctxKey int

const (
	ctxKeyTenant ctxKey = iota
	ctxKeySession
)

// WithContext returns ctx carrying the resolved tenant.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKeyTenant, tc)
}

// FromContext returns the resolved tenant, if any.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKeyTenant).(Context)
	return tc, ok
}

// BindSession marks the data session for ctx as scoped to tenantID. Every
// tenant-scoped query performed with ctx reads through this binding, so a
// request can never mix rows from two tenants.
func BindSession(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, ctxKeySession, tenantID)
}

// SessionTenantID returns the tenant the data session is bound to, or
// ErrNoSession when the request never went through tenant resolution.
func SessionTenantID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(ctxKeySession).(string)
	if !ok || id == "" {
		return "", ErrNoSession
	}
	return id, nil
}

// Directory is the lookup surface the resolver and access validator need.
// The sqlite store implements it.
type Directory interface {
	GetTenant(ctx context.Context, id string) (domain.Tenant, error)
	GetTenantBySubdomain(ctx context.Context, subdomain string) (domain.Tenant, error)
	UserBelongsToTenant(ctx context.Context, userID, tenantID string) (bool, error)
}
