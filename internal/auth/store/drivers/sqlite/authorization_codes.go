package sqlite

import (
	"context"
	"time"

	"github.com/tillworks/tillsuite/internal/auth/domain"
)

type authorizationCodesRepo struct {
	db dbtx
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authorization_codes (
			id, code_hash, client_id, user_id, tenant_id, redirect_uri,
			scopes, code_challenge, code_challenge_method, expires_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		code.ID,
		code.CodeHash,
		code.ClientID,
		code.UserID,
		code.TenantID,
		code.RedirectURI,
		joinScopes(code.Scopes),
		code.CodeChallenge,
		code.CodeChallengeMethod,
		code.ExpiresAt,
		code.CreatedAt,
	)
	return err
}

// ConsumeAuthorizationCode deletes and returns the code in one statement.
// DELETE ... RETURNING makes the consume atomic at the database, so two
// concurrent exchanges of the same code cannot both succeed.
func (r *authorizationCodesRepo) ConsumeAuthorizationCode(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	row := r.db.QueryRowContext(ctx, `
		DELETE FROM authorization_codes
		WHERE code_hash = ?
		RETURNING id, code_hash, client_id, user_id, tenant_id, redirect_uri,
			scopes, code_challenge, code_challenge_method, expires_at, created_at`,
		hash,
	)

	var (
		code   domain.AuthorizationCode
		scopes string
	)
	err := row.Scan(
		&code.ID,
		&code.CodeHash,
		&code.ClientID,
		&code.UserID,
		&code.TenantID,
		&code.RedirectURI,
		&scopes,
		&code.CodeChallenge,
		&code.CodeChallengeMethod,
		&code.ExpiresAt,
		&code.CreatedAt,
	)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	code.Scopes = splitScopes(scopes)
	return code, nil
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
