package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillworks/tillsuite/internal/auth/domain"
)

const testCatalog = `
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
  - client_id: pos-backend
    client_secret: super-secret-value
    name: POS Backend
    type: confidential
    grant_types: [client_credentials]
    scopes: [pos.sync]
`

func TestParse(t *testing.T) {
	reg, err := Parse([]byte(testCatalog))
	require.NoError(t, err)

	spa, err := reg.Lookup("public-spa")
	require.NoError(t, err)
	require.Equal(t, domain.ClientTypePublic, spa.Type)
	require.True(t, spa.Public())
	require.Empty(t, spa.SecretHash)

	backend, err := reg.Lookup("pos-backend")
	require.NoError(t, err)
	require.Equal(t, domain.ClientTypeConfidential, backend.Type)
	require.NotEmpty(t, backend.SecretHash)

	_, err = reg.Lookup("ghost")
	require.ErrorIs(t, err, ErrClientNotFound)
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	cases := map[string]string{
		"empty catalog": `clients: []`,
		"duplicate id": `
clients:
  - {client_id: a, type: public, redirect_uris: ["https://a/cb"]}
  - {client_id: a, type: public, redirect_uris: ["https://a/cb"]}
`,
		"unknown type": `
clients:
  - {client_id: a, type: hybrid, redirect_uris: ["https://a/cb"]}
`,
		"confidential without secret": `
clients:
  - {client_id: a, type: confidential, grant_types: [client_credentials]}
`,
		"public with secret": `
clients:
  - {client_id: a, client_secret: s, type: public, redirect_uris: ["https://a/cb"]}
`,
		"double wildcard": `
clients:
  - {client_id: a, type: public, redirect_uris: ["https://a/*/x/*"]}
`,
	}

	for name, catalog := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(catalog))
			require.Error(t, err)
		})
	}
}

func TestValidateRedirectURI(t *testing.T) {
	reg, err := Parse([]byte(testCatalog))
	require.NoError(t, err)

	t.Run("exact match", func(t *testing.T) {
		require.True(t, reg.ValidateRedirectURI("public-spa", "https://app.example.com/cb"))
	})

	t.Run("wildcard matches one segment", func(t *testing.T) {
		require.True(t, reg.ValidateRedirectURI("public-spa", "https://app.example.com/tenant-a/callback"))
	})

	t.Run("wildcard never spans segments", func(t *testing.T) {
		require.False(t, reg.ValidateRedirectURI("public-spa", "https://app.example.com/a/b/callback"))
	})

	t.Run("wildcard is anchored", func(t *testing.T) {
		require.False(t, reg.ValidateRedirectURI("public-spa", "https://app.example.com/a/callback/../evil"))
		require.False(t, reg.ValidateRedirectURI("public-spa", "evil.com/https://app.example.com/a/callback"))
	})

	t.Run("unknown client", func(t *testing.T) {
		require.False(t, reg.ValidateRedirectURI("ghost", "https://app.example.com/cb"))
	})

	t.Run("empty uri", func(t *testing.T) {
		require.False(t, reg.ValidateRedirectURI("public-spa", ""))
	})
}

func TestVerifySecret(t *testing.T) {
	reg, err := Parse([]byte(testCatalog))
	require.NoError(t, err)

	require.True(t, reg.VerifySecret("pos-backend", "super-secret-value"))
	require.False(t, reg.VerifySecret("pos-backend", "wrong"))
	require.False(t, reg.VerifySecret("public-spa", "anything"))
	require.False(t, reg.VerifySecret("ghost", "anything"))
}
