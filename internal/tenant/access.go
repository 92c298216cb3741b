package tenant

import (
	"net/http"

	"github.com/tillworks/tillsuite/pkg/httpx"
	"github.com/tillworks/tillsuite/pkg/oauthsdk"
)

// SuperAdminRole is the only role exempt from the membership check. Holders
// operate across tenants (platform support and billing).
const SuperAdminRole = "super_admin"

// AccessValidator confirms the authenticated user may act within the
// resolved tenant. It runs after both the bearer gate and the resolver.
type AccessValidator struct {
	directory Directory
}

func NewAccessValidator(d Directory) *AccessValidator {
	return &AccessValidator{directory: d}
}

// Validate returns nil when the caller belongs to the request's tenant, is
// a super admin, or the route resolved no tenant at all.
func (v *AccessValidator) Validate(r *http.Request) error {
	tc, ok := FromContext(r.Context())
	if !ok {
		return nil
	}
	ident, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		return oauthsdk.ErrUnauthorized
	}
	for _, role := range ident.Roles {
		if role == SuperAdminRole {
			return nil
		}
	}
	if ident.TenantID == tc.ID {
		return nil
	}
	member, err := v.directory.UserBelongsToTenant(r.Context(), ident.UserID, tc.ID)
	if err != nil {
		return err
	}
	if !member {
		return oauthsdk.ErrTenantAccessDenied
	}
	return nil
}
