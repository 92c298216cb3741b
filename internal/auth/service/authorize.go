package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tillworks/tillsuite/internal/auth/domain"
	"github.com/tillworks/tillsuite/internal/auth/registry"
	"github.com/tillworks/tillsuite/internal/auth/store"
	"github.com/tillworks/tillsuite/pkg/cryptox"
	"github.com/tillworks/tillsuite/pkg/idx"
	"github.com/tillworks/tillsuite/pkg/slogx"
)

var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrInvalidCredentials      = errors.New("invalid_credentials")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
)

// DefaultCodeTTL is the authorization code lifetime. Codes are single-use
// regardless of age.
const DefaultCodeTTL = 10 * time.Minute

// DefaultScope is granted when the client requests nothing explicit.
const DefaultScope = "openid"

// AuthorizeService drives the authorization-code issuance flow. Validation
// runs strictly before any side effect, so an unvalidated client never sees
// a login form and never causes a write.
type AuthorizeService struct {
	Registry *registry.Registry
	Store    store.Store
	CodeTTL  time.Duration
}

// AuthorizeRequest carries the query/form parameters of one authorization
// request.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string

	// Credentials from the submitted consent form.
	Email    string
	Password string

	// TenantID is the tenant the request resolved to. Minted codes are
	// pinned to it so the token endpoint inherits the same isolation.
	TenantID string
}

// ValidatedRequest is the outcome of ValidateRequest: everything the consent
// form needs to re-carry as hidden fields.
type ValidatedRequest struct {
	Client              domain.Client
	ResponseType        string
	RedirectURI         string
	Scopes              []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizeCodeResponse contains the minted code and the redirect target.
type AuthorizeCodeResponse struct {
	Code        string
	RedirectURI string
	State       string
}

// ValidateRequest runs the ordered pre-form validations. Each step is a
// terminal failure; nothing user-facing renders until all pass.
func (s *AuthorizeService) ValidateRequest(ctx context.Context, req AuthorizeRequest) (*ValidatedRequest, error) {
	clientID := strings.TrimSpace(req.ClientID)
	redirectURI := strings.TrimSpace(req.RedirectURI)
	responseType := strings.TrimSpace(req.ResponseType)

	// 1. Required parameters.
	if clientID == "" || redirectURI == "" || responseType == "" {
		return nil, ErrInvalidRequest
	}

	// 2. Known client.
	client, err := s.Registry.Lookup(clientID)
	if err != nil {
		if errors.Is(err, registry.ErrClientNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}

	// 3. Redirect URI on the allow-list.
	if !s.Registry.ValidateRedirectURI(clientID, redirectURI) {
		return nil, ErrInvalidRequest
	}

	// 4. Response type the client registered for.
	if !client.AllowsResponseType(responseType) {
		return nil, ErrUnsupportedResponseType
	}

	// 5. PKCE is mandatory for public clients.
	challenge, method, err := validatePKCE(req.CodeChallenge, req.CodeChallengeMethod, client)
	if err != nil {
		return nil, err
	}

	requested := strings.Fields(req.Scope)
	if len(requested) == 0 {
		requested = []string{DefaultScope}
	}
	scopes := intersectScopes(requested, client.Scopes)
	if len(scopes) == 0 {
		return nil, ErrInvalidScope
	}

	return &ValidatedRequest{
		Client:              client,
		ResponseType:        responseType,
		RedirectURI:         redirectURI,
		Scopes:              scopes,
		State:               req.State,
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
	}, nil
}

// Authorize re-validates the submitted form, authenticates the user within
// the resolved tenant, and mints a single-use code. A failed login returns
// ErrInvalidCredentials and writes nothing.
func (s *AuthorizeService) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeCodeResponse, error) {
	log := slogx.FromContext(ctx)

	validated, err := s.ValidateRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Warn("authorize: user lookup failed", "error", err)
		return nil, err
	}
	if cryptox.VerifyPassword(req.Password, user.PasswordHash) != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	code, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, err
	}

	ttl := s.CodeTTL
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}

	record := domain.AuthorizationCode{
		ID:                  idx.New().String(),
		CodeHash:            cryptox.FingerprintToken(code),
		ClientID:            validated.Client.ID,
		UserID:              user.ID,
		TenantID:            req.TenantID,
		RedirectURI:         validated.RedirectURI,
		Scopes:              validated.Scopes,
		CodeChallenge:       validated.CodeChallenge,
		CodeChallengeMethod: validated.CodeChallengeMethod,
		ExpiresAt:           now.Add(ttl),
		CreatedAt:           now,
	}
	if err := s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, record); err != nil {
		return nil, err
	}

	return &AuthorizeCodeResponse{
		Code:        code,
		RedirectURI: validated.RedirectURI,
		State:       validated.State,
	}, nil
}

// validatePKCE enforces the challenge rules at issuance. Public clients must
// present a challenge; the only accepted method is S256. Confidential
// clients may skip PKCE entirely.
func validatePKCE(challenge, method string, client domain.Client) (string, string, error) {
	challenge = strings.TrimSpace(challenge)
	method = strings.TrimSpace(method)

	if challenge == "" {
		if client.Public() {
			return "", "", ErrInvalidRequest
		}
		return "", "", nil
	}

	switch {
	case method == "" || strings.EqualFold(method, "S256"):
		return challenge, "S256", nil
	default:
		return "", "", ErrInvalidRequest
	}
}

func intersectScopes(a, b []string) []string {
	set := map[string]struct{}{}
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
