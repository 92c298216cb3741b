package store

import (
	"context"
	"errors"

	"github.com/tillworks/tillsuite/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// It exposes sub-repositories to keep concerns tidy and testable, and to
// stop callers from accidentally nesting transactions.
type Store interface {
	Users() Users
	Tenants() Tenants
	AuthorizationCodes() AuthorizationCodes
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id, unscoped. Used by the bearer gate
	// and token grants where the tenant comes from the grant record.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks a user up within the tenant bound to the request
	// data session. It fails rather than run unscoped.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error
}

type Tenants interface {
	// GetTenant returns a tenant by UUID.
	GetTenant(ctx context.Context, id string) (domain.Tenant, error)

	// GetTenantBySubdomain looks up the subdomain table. Callers lowercase
	// the key first.
	GetTenantBySubdomain(ctx context.Context, subdomain string) (domain.Tenant, error)

	// CreateTenant inserts a new tenant.
	CreateTenant(ctx context.Context, t domain.Tenant) error

	// AddMembership grants a user access to a tenant.
	AddMembership(ctx context.Context, m domain.Membership) error

	// UserBelongsToTenant reports whether the user's home tenant or any
	// membership covers tenantID.
	UserBelongsToTenant(ctx context.Context, userID, tenantID string) (bool, error)
}

type AuthorizationCodes interface {
	// CreateAuthorizationCode stores a freshly minted authorization code.
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// ConsumeAuthorizationCode atomically deletes the code by its hashed
	// value and returns the deleted record. A second concurrent consume of
	// the same hash gets ErrNotFound; exactly one caller wins.
	ConsumeAuthorizationCode(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	// DeleteExpiredAuthorizationCodes is housekeeping; returns rows removed.
	DeleteExpiredAuthorizationCodes(ctx context.Context) (int64, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its SHA-256 fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// DeleteRefreshTokenByHash removes a token (revocation). Deleting an
	// unknown hash is not an error.
	DeleteRefreshTokenByHash(ctx context.Context, hash string) error

	// DeleteExpiredRefreshTokens is housekeeping; returns rows removed.
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)
}
