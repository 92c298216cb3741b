package sqlite

import (
	"context"
	"fmt"

	"github.com/tillworks/tillsuite/internal/auth/domain"
	"github.com/tillworks/tillsuite/internal/tenant"
)

type usersRepo struct {
	db dbtx
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, email, name, password_hash, roles, created_at, updated_at
		FROM users
		WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

// GetUserByEmail only runs with a tenant-bound data session. A missing
// binding means some code path skipped tenant resolution, which must fail
// loudly rather than return a cross-tenant row.
func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	tenantID, err := tenant.SessionTenantID(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, email, name, password_hash, roles, created_at, updated_at
		FROM users
		WHERE tenant_id = ? AND email = ?`,
		tenantID, email,
	)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, tenant_id, email, name, password_hash, roles, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.TenantID,
		u.Email,
		u.Name,
		u.PasswordHash,
		joinScopes(u.Roles),
		u.CreatedAt,
		u.UpdatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u     domain.User
		roles string
	)
	err := row.Scan(
		&u.ID,
		&u.TenantID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&roles,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Roles = splitScopes(roles)
	return u, nil
}
