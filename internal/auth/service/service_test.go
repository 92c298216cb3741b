package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillworks/tillsuite/internal/auth/domain"
	"github.com/tillworks/tillsuite/internal/auth/registry"
	"github.com/tillworks/tillsuite/internal/auth/store/drivers/sqlite"
	"github.com/tillworks/tillsuite/internal/tenant"
	"github.com/tillworks/tillsuite/pkg/cryptox"
	"github.com/tillworks/tillsuite/pkg/idx"
	"github.com/tillworks/tillsuite/pkg/jwtx"
)

const (
	testTenantID = "11111111-2222-3333-4444-555555555555"
	testPassword = "correct horse battery staple"
	testIssuer   = "https://auth.tillsuite.test"
)

const testClients = `
clients:
  - client_id: public-spa
    name: Suite SPA
    type: public
    redirect_uris:
      - https://app.example.com/cb
      - https://app.example.com/*/callback
    grant_types: [authorization_code, refresh_token]
    response_types: [code]
    scopes: [openid, profile, email]
  - client_id: web-portal
    client_secret: portal-secret
    name: Web Portal
    type: confidential
    redirect_uris:
      - https://portal.example.com/cb
    grant_types: [authorization_code, refresh_token]
    response_types: [code]
    scopes: [openid, profile]
  - client_id: pos-backend
    client_secret: backend-secret
    name: POS Backend
    type: confidential
    grant_types: [client_credentials]
    scopes: [pos.sync, inventory.read]
`

type testEnv struct {
	store     *sqlite.Store
	registry  *registry.Registry
	signer    *jwtx.HS256
	authorize *AuthorizeService
	token     *TokenService
	user      domain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	reg, err := registry.Parse([]byte(testClients))
	require.NoError(t, err)

	signer, err := jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef"), testIssuer)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, st.Tenants().CreateTenant(context.Background(), domain.Tenant{
		ID:        testTenantID,
		Name:      "Acme Retail",
		Code:      "acme",
		Subdomain: "acme",
		CreatedAt: now,
		UpdatedAt: now,
	}))

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)
	user := domain.User{
		ID:           idx.New().String(),
		TenantID:     testTenantID,
		Email:        "owner@acme.example",
		Name:         "Acme Owner",
		PasswordHash: hash,
		Roles:        []string{"owner"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))

	return &testEnv{
		store:    st,
		registry: reg,
		signer:   signer,
		authorize: &AuthorizeService{
			Registry: reg,
			Store:    st,
			CodeTTL:  10 * time.Minute,
		},
		token: &TokenService{
			Registry:   reg,
			Store:      st,
			Signer:     signer,
			Issuer:     testIssuer,
			AccessTTL:  time.Hour,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		user: user,
	}
}

// tenantCtx binds the test tenant's data session, as the resolver middleware
// would for a real request.
func tenantCtx() context.Context {
	return tenant.BindSession(context.Background(), testTenantID)
}

func s256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// issueCode walks the happy authorize path and returns the minted code.
func issueCode(t *testing.T, env *testEnv, clientID, redirectURI, verifier string) string {
	t.Helper()
	req := AuthorizeRequest{
		ResponseType: "code",
		ClientID:     clientID,
		RedirectURI:  redirectURI,
		Scope:        "openid profile",
		State:        "xyz",
		Email:        env.user.Email,
		Password:     testPassword,
		TenantID:     testTenantID,
	}
	if verifier != "" {
		req.CodeChallenge = s256Challenge(verifier)
		req.CodeChallengeMethod = "S256"
	}
	resp, err := env.authorize.Authorize(tenantCtx(), req)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(resp.Code), 22, "code must carry at least 128 bits")
	return resp.Code
}
