package oauthsdk

// TokenResponse is the OAuth2 token endpoint response per RFC 6749.
type TokenResponse struct {
	// AccessToken is the JWT access token used to authenticate API requests
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque refresh token used to obtain new access
	// tokens. Omitted for client_credentials grants.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited list of scopes granted to this token
	Scope string `json:"scope,omitempty"`
}

// ErrorResponse is the wire shape of an OAuth2 error, for clients decoding
// responses written by Error.WriteError.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// DiscoveryDocument is the RFC 8414 authorization-server metadata served at
// /.well-known/oauth-authorization-server.
type DiscoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
}

// UserInfoResponse is returned from GET /oauth2/userinfo. Fields beyond the
// subject appear only when the corresponding scope was granted.
type UserInfoResponse struct {
	Sub      string `json:"sub"`
	TenantID string `json:"tenant_id,omitempty"`

	// email scope
	Email string `json:"email,omitempty"`

	// profile scope
	Name string `json:"name,omitempty"`
}
