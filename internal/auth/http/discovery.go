package http

import (
	"net/http"

	"github.com/tillworks/tillsuite/pkg/httpx"
	"github.com/tillworks/tillsuite/pkg/oauthsdk"
)

// DiscoveryHandler serves GET /.well-known/oauth-authorization-server per
// RFC 8414. The document is static for the process lifetime.
func DiscoveryHandler(issuer string) http.Handler {
	doc := oauthsdk.DiscoveryDocument{
		Issuer:                issuer,
		AuthorizationEndpoint: issuer + "/oauth2/authorize",
		TokenEndpoint:         issuer + "/oauth2/token",
		UserinfoEndpoint:      issuer + "/oauth2/userinfo",
		RevocationEndpoint:    issuer + "/oauth2/revoke",
		GrantTypesSupported: []string{
			"authorization_code",
			"refresh_token",
			"client_credentials",
		},
		ResponseTypesSupported:        []string{"code"},
		ScopesSupported:               []string{"openid", "profile", "email"},
		CodeChallengeMethodsSupported: []string{"S256"},
		TokenEndpointAuthMethodsSupported: []string{
			"client_secret_post",
			"none",
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	})
}
