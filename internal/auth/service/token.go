package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tillworks/tillsuite/internal/auth/domain"
	"github.com/tillworks/tillsuite/internal/auth/registry"
	"github.com/tillworks/tillsuite/internal/auth/store"
	"github.com/tillworks/tillsuite/pkg/cryptox"
	"github.com/tillworks/tillsuite/pkg/idx"
	"github.com/tillworks/tillsuite/pkg/jwtx"
	"github.com/tillworks/tillsuite/pkg/slogx"
)

// TokenService implements the token endpoint grants. All grant failures
// collapse to ErrInvalidGrant so callers cannot distinguish a code that
// never existed from one that expired.
type TokenService struct {
	Registry   *registry.Registry
	Store      store.Store
	Signer     jwtx.Signer
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

// ExchangeAuthorizationCode implements the authorization_code grant.
//
// The code is consumed (deleted) before any further check runs, so a replay
// loses even when a later validation would have failed. Exactly one caller
// can win the consume; everyone else sees ErrInvalidGrant.
func (s *TokenService) ExchangeAuthorizationCode(
	ctx context.Context,
	clientID, clientSecret, code, redirectURI, codeVerifier string,
) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	client, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrantType("authorization_code") {
		return nil, ErrUnsupportedGrantType
	}

	code = strings.TrimSpace(code)
	redirectURI = strings.TrimSpace(redirectURI)
	codeVerifier = strings.TrimSpace(codeVerifier)
	if code == "" || redirectURI == "" {
		return nil, ErrInvalidGrant
	}

	authCode, err := s.Store.AuthorizationCodes().ConsumeAuthorizationCode(ctx, cryptox.FingerprintToken(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	// The code is gone from the store at this point no matter what happens
	// below; failures cannot be retried with the same code.
	if authCode.Expired(now) {
		return nil, ErrInvalidGrant
	}
	if authCode.ClientID != client.ID {
		return nil, ErrInvalidGrant
	}
	if authCode.RedirectURI != redirectURI {
		return nil, ErrInvalidGrant
	}
	if !verifyCodeVerifier(authCode.CodeChallenge, authCode.CodeChallengeMethod, codeVerifier) {
		return nil, ErrInvalidGrant
	}

	user, err := s.Store.Users().GetUserByID(ctx, authCode.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	scope := strings.Join(authCode.Scopes, " ")
	accessToken, err := s.signAccess(user, client.ID, authCode.TenantID, scope, now)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	refresh := domain.RefreshToken{
		ID:        idx.New().String(),
		TokenHash: cryptox.FingerprintToken(refreshOpaque),
		ClientID:  client.ID,
		UserID:    user.ID,
		TenantID:  authCode.TenantID,
		Scopes:    authCode.Scopes,
		ExpiresAt: now.Add(s.refreshTTL()),
		CreatedAt: now,
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, refresh); err != nil {
		return nil, err
	}

	l.Info("authorization code exchanged",
		slog.String("client_id", client.ID),
		slog.String("user_id", user.ID),
		slog.String("tenant_id", authCode.TenantID),
	)

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		ExpiresIn:    s.accessTTL(),
		Scope:        scope,
	}, nil
}

// ExchangeRefreshToken implements the refresh_token grant. The refresh token
// is not rotated: the same opaque token stays valid until it expires or is
// revoked. An expired row is deleted on sight so the store does not serve it
// again.
func (s *TokenService) ExchangeRefreshToken(
	ctx context.Context,
	clientID, clientSecret, refreshOpaque string,
) (*domain.TokenPair, error) {
	now := time.Now()

	client, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrantType("refresh_token") {
		return nil, ErrUnsupportedGrantType
	}

	refreshOpaque = strings.TrimSpace(refreshOpaque)
	if refreshOpaque == "" {
		return nil, ErrInvalidGrant
	}

	fp := cryptox.FingerprintToken(refreshOpaque)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	if rt.Expired(now) {
		_ = s.Store.RefreshTokens().DeleteRefreshTokenByHash(ctx, fp)
		return nil, ErrInvalidGrant
	}
	if rt.ClientID != client.ID {
		return nil, ErrInvalidGrant
	}

	user, err := s.Store.Users().GetUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	scope := strings.Join(rt.Scopes, " ")
	accessToken, err := s.signAccess(user, client.ID, rt.TenantID, scope, now)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		ExpiresIn:    s.accessTTL(),
		Scope:        scope,
	}, nil
}

// ExchangeClientCredentials implements the client_credentials grant. The
// client is its own subject; no user context and no refresh token.
func (s *TokenService) ExchangeClientCredentials(
	ctx context.Context,
	clientID, clientSecret, requestedScope, tenantID string,
) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	client, err := s.Registry.Lookup(clientID)
	if err != nil {
		if errors.Is(err, registry.ErrClientNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}
	if client.Public() {
		l.Warn("client_credentials grant attempted with public client", "client_id", clientID)
		return nil, ErrInvalidClient
	}
	if !s.Registry.VerifySecret(clientID, clientSecret) {
		l.Info("client secret verification failed", "client_id", clientID)
		return nil, ErrInvalidClient
	}
	if !client.AllowsGrantType("client_credentials") {
		return nil, ErrUnsupportedGrantType
	}

	requested := strings.Fields(requestedScope)
	effective := client.Scopes
	if len(requested) > 0 {
		effective = intersectScopes(requested, client.Scopes)
	}
	if len(effective) == 0 {
		return nil, ErrInvalidScope
	}

	scope := strings.Join(effective, " ")
	claims := jwtx.NewAccessClaims(client.ID, client.ID, tenantID, scope, s.accessTTL(), s.Issuer, now)
	claims.Name = client.Name

	accessToken, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken: accessToken,
		ExpiresIn:   s.accessTTL(),
		Scope:       scope,
	}, nil
}

// RevokeToken drops a refresh token by its opaque value. Unknown tokens are
// not an error; revocation is idempotent.
func (s *TokenService) RevokeToken(ctx context.Context, opaque string) error {
	opaque = strings.TrimSpace(opaque)
	if opaque == "" {
		return nil
	}
	return s.Store.RefreshTokens().DeleteRefreshTokenByHash(ctx, cryptox.FingerprintToken(opaque))
}

// authenticateClient resolves the client and, for confidential clients,
// checks the presented secret. Public clients pass with no secret.
func (s *TokenService) authenticateClient(ctx context.Context, clientID, clientSecret string) (domain.Client, error) {
	l := slogx.FromContext(ctx)

	client, err := s.Registry.Lookup(clientID)
	if err != nil {
		if errors.Is(err, registry.ErrClientNotFound) {
			return domain.Client{}, ErrInvalidClient
		}
		return domain.Client{}, err
	}

	if !client.Public() {
		if clientSecret == "" || !s.Registry.VerifySecret(clientID, clientSecret) {
			l.Info("client authentication failed", slog.String("client_id", clientID))
			return domain.Client{}, ErrInvalidClient
		}
	}
	return client, nil
}

func (s *TokenService) signAccess(
	u domain.User,
	clientID, tenantID, scope string,
	now time.Time,
) (string, error) {
	claims := jwtx.NewAccessClaims(u.ID, clientID, tenantID, scope, s.accessTTL(), s.Issuer, now)
	claims.Email = u.Email
	claims.Name = u.Name
	claims.Roles = u.Roles
	return s.Signer.Sign(claims)
}

// verifyCodeVerifier recomputes BASE64URL(SHA256(verifier)) and compares it
// byte for byte against the stored challenge. Only S256 is accepted at the
// exchange; any other recorded method is a hard failure.
func verifyCodeVerifier(challenge, method, verifier string) bool {
	challenge = strings.TrimSpace(challenge)
	if challenge == "" {
		// No PKCE recorded at issuance (confidential client).
		return true
	}
	if !strings.EqualFold(strings.TrimSpace(method), "S256") {
		return false
	}
	verifier = strings.TrimSpace(verifier)
	if verifier == "" {
		return false
	}
	sum := sha256.Sum256([]byte(verifier))
	expected := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(challenge), []byte(expected)) == 1
}
