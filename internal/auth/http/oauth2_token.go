package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tillworks/tillsuite/internal/auth/service"
	"github.com/tillworks/tillsuite/internal/tenant"
	"github.com/tillworks/tillsuite/pkg/httpx"
	"github.com/tillworks/tillsuite/pkg/oauthsdk"
	"github.com/tillworks/tillsuite/pkg/slogx"
)

// TokenHandler serves POST /oauth2/token.
// Accepts application/x-www-form-urlencoded and application/json bodies;
// browser flows post forms, service callers send JSON.
type TokenHandler struct {
	TokenService *service.TokenService
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params, oerr := decodeGrantParams(r)
	if oerr != nil {
		oerr.WriteError(w)
		return
	}

	switch params.Get("grant_type") {
	case "authorization_code":
		h.handleAuthorizationCodeGrant(w, r, params)
	case "refresh_token":
		h.handleRefreshGrant(w, r, params)
	case "client_credentials":
		h.handleClientCredentialsGrant(w, r, params)
	default:
		oauthsdk.ErrUnsupportedGrantType.WriteError(w)
	}
}

// decodeGrantParams reads the grant parameters from either supported body
// encoding. JSON bodies carry the same flat string parameters the form
// encoding does; anything else is rejected before dispatch.
func decodeGrantParams(r *http.Request) (url.Values, *oauthsdk.Error) {
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "application/json"):
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, oauthsdk.ErrInvalidFormBody
		}
		params := make(url.Values, len(body))
		for k, v := range body {
			params.Set(k, v)
		}
		return params, nil
	case ct == "" || strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			return nil, oauthsdk.ErrInvalidFormBody
		}
		return r.Form, nil
	default:
		return nil, oauthsdk.ErrInvalidContentType
	}
}

func (h *TokenHandler) handleAuthorizationCodeGrant(
	w http.ResponseWriter,
	r *http.Request,
	form url.Values,
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	code := strings.TrimSpace(form.Get("code"))
	redirectURI := strings.TrimSpace(form.Get("redirect_uri"))
	clientID := strings.TrimSpace(form.Get("client_id"))
	codeVerifier := strings.TrimSpace(form.Get("code_verifier"))
	clientSecret := form.Get("client_secret")

	if code == "" || redirectURI == "" || clientID == "" {
		oauthsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.ExchangeAuthorizationCode(ctx, clientID, clientSecret, code, redirectURI, codeVerifier)
	if err != nil {
		writeGrantError(w, log, "authorization_code", err)
		return
	}
	writeTokenResponse(w, pair.AccessToken, pair.RefreshToken, int(pair.ExpiresIn.Seconds()), pair.Scope)
}

func (h *TokenHandler) handleRefreshGrant(w http.ResponseWriter, r *http.Request, form url.Values) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	refresh := form.Get("refresh_token")
	clientID := strings.TrimSpace(form.Get("client_id"))
	clientSecret := form.Get("client_secret")

	if refresh == "" || clientID == "" {
		oauthsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.ExchangeRefreshToken(ctx, clientID, clientSecret, refresh)
	if err != nil {
		writeGrantError(w, log, "refresh_token", err)
		return
	}
	writeTokenResponse(w, pair.AccessToken, pair.RefreshToken, int(pair.ExpiresIn.Seconds()), pair.Scope)
}

func (h *TokenHandler) handleClientCredentialsGrant(
	w http.ResponseWriter,
	r *http.Request,
	form url.Values,
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	clientID := strings.TrimSpace(form.Get("client_id"))
	clientSecret := form.Get("client_secret")
	scope := strings.TrimSpace(form.Get("scope"))

	if clientID == "" || clientSecret == "" {
		oauthsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	tenantID := ""
	if tc, ok := tenant.FromContext(ctx); ok {
		tenantID = tc.ID
	}

	pair, err := h.TokenService.ExchangeClientCredentials(ctx, clientID, clientSecret, scope, tenantID)
	if err != nil {
		writeGrantError(w, log, "client_credentials", err)
		return
	}
	// refresh_token is omitted from the JSON when empty
	writeTokenResponse(w, pair.AccessToken, "", int(pair.ExpiresIn.Seconds()), pair.Scope)
}

func writeTokenResponse(w http.ResponseWriter, access, refresh string, expiresIn int, scope string) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, oauthsdk.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
		Scope:        strings.TrimSpace(scope),
	})
}

func writeGrantError(w http.ResponseWriter, log *slog.Logger, grant string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidClient):
		oauthsdk.ErrInvalidClient.WriteError(w)
	case errors.Is(err, service.ErrInvalidGrant):
		oauthsdk.ErrInvalidGrant.WriteError(w)
	case errors.Is(err, service.ErrInvalidScope):
		oauthsdk.ErrInvalidScope.WriteError(w)
	case errors.Is(err, service.ErrUnsupportedGrantType):
		oauthsdk.ErrUnsupportedGrantType.WriteError(w)
	default:
		log.Error(grant+" grant failed", "err", err)
		oauthsdk.ErrServerError.WriteError(w)
	}
}
