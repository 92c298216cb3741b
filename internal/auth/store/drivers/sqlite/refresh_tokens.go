package sqlite

import (
	"context"
	"time"

	"github.com/tillworks/tillsuite/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (
			id, token_hash, client_id, user_id, tenant_id, scopes, expires_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.TokenHash,
		t.ClientID,
		t.UserID,
		t.TenantID,
		joinScopes(t.Scopes),
		t.ExpiresAt,
		t.CreatedAt,
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, token_hash, client_id, user_id, tenant_id, scopes, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = ?`,
		hash,
	)

	var (
		t      domain.RefreshToken
		scopes string
	)
	err := row.Scan(
		&t.ID,
		&t.TokenHash,
		&t.ClientID,
		&t.UserID,
		&t.TenantID,
		&scopes,
		&t.ExpiresAt,
		&t.CreatedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.Scopes = splitScopes(scopes)
	return t, nil
}

func (r *refreshTokensRepo) DeleteRefreshTokenByHash(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = ?`, hash)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
