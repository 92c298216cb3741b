package sqlite

import (
	"context"
	"strings"

	"github.com/tillworks/tillsuite/internal/auth/domain"
)

type tenantsRepo struct {
	db dbtx
}

func (r *tenantsRepo) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, code, subdomain, created_at, updated_at
		FROM tenants
		WHERE id = ?`,
		strings.ToLower(id),
	)
	return scanTenant(row)
}

func (r *tenantsRepo) GetTenantBySubdomain(ctx context.Context, subdomain string) (domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, code, subdomain, created_at, updated_at
		FROM tenants
		WHERE subdomain = ?`,
		strings.ToLower(subdomain),
	)
	return scanTenant(row)
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, code, subdomain, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		strings.ToLower(t.ID),
		t.Name,
		t.Code,
		strings.ToLower(t.Subdomain),
		t.CreatedAt,
		t.UpdatedAt,
	)
	return err
}

func (r *tenantsRepo) AddMembership(ctx context.Context, m domain.Membership) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenant_memberships (user_id, tenant_id, role)
		VALUES (?, ?, ?)`,
		m.UserID,
		strings.ToLower(m.TenantID),
		m.Role,
	)
	return err
}

// UserBelongsToTenant covers both the user's home tenant and explicit
// memberships.
func (r *tenantsRepo) UserBelongsToTenant(ctx context.Context, userID, tenantID string) (bool, error) {
	tenantID = strings.ToLower(tenantID)
	row := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE id = ? AND tenant_id = ?
			UNION
			SELECT 1 FROM tenant_memberships WHERE user_id = ? AND tenant_id = ?
		)`,
		userID, tenantID, userID, tenantID,
	)
	var belongs bool
	if err := row.Scan(&belongs); err != nil {
		return false, err
	}
	return belongs, nil
}

func scanTenant(row rowScanner) (domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Code,
		&t.Subdomain,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	return t, nil
}
