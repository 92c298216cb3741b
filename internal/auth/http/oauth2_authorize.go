package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tillworks/tillsuite/internal/auth/service"
	"github.com/tillworks/tillsuite/internal/tenant"
	"github.com/tillworks/tillsuite/pkg/oauthsdk"
	"github.com/tillworks/tillsuite/pkg/slogx"
)

// consentTemplate carries every flow parameter as a hidden field so the POST
// is stateless; nothing about the flow lives in a server-side session.
var consentTemplate = template.Must(template.New("consent").Parse(`<!DOCTYPE html>
<html>
<head><title>Sign in - {{.ClientName}}</title></head>
<body>
<h1>Sign in to continue to {{.ClientName}}</h1>
<form method="post" action="{{.Action}}">
  <input type="hidden" name="response_type" value="{{.ResponseType}}">
  <input type="hidden" name="client_id" value="{{.ClientID}}">
  <input type="hidden" name="redirect_uri" value="{{.RedirectURI}}">
  <input type="hidden" name="scope" value="{{.Scope}}">
  <input type="hidden" name="state" value="{{.State}}">
  <input type="hidden" name="code_challenge" value="{{.CodeChallenge}}">
  <input type="hidden" name="code_challenge_method" value="{{.CodeChallengeMethod}}">
  <label>Email <input type="email" name="email" autocomplete="username" required></label>
  <label>Password <input type="password" name="password" autocomplete="current-password" required></label>
  <button type="submit">Sign in</button>
</form>
</body>
</html>
`))

type consentPage struct {
	ClientName          string
	Action              string
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizeHandler serves the authorization endpoint. GET validates the
// request and renders the consent form; POST authenticates and redirects
// back to the client with a code.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
	Logger           *slog.Logger
}

// HandleGet runs the ordered validations and, only once all pass, renders
// the login form. Validation failures never render anything user-facing and
// never redirect; the client gets a structured error.
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := service.AuthorizeRequest{
		ResponseType:        q.Get("response_type"),
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}

	validated, err := h.AuthorizeService.ValidateRequest(r.Context(), req)
	if err != nil {
		writeAuthorizeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = consentTemplate.Execute(w, consentPage{
		ClientName:          validated.Client.Name,
		Action:              r.URL.Path,
		ResponseType:        validated.ResponseType,
		ClientID:            validated.Client.ID,
		RedirectURI:         validated.RedirectURI,
		Scope:               q.Get("scope"),
		State:               validated.State,
		CodeChallenge:       validated.CodeChallenge,
		CodeChallengeMethod: validated.CodeChallengeMethod,
	})
}

// HandlePost authenticates the submitted credentials and, on success,
// redirects to the registered URI with code and echoed state. A failed
// login returns 401 without minting anything; errors are never delivered by
// redirect.
func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		oauthsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	req := service.AuthorizeRequest{
		ResponseType:        r.PostForm.Get("response_type"),
		ClientID:            r.PostForm.Get("client_id"),
		RedirectURI:         r.PostForm.Get("redirect_uri"),
		Scope:               r.PostForm.Get("scope"),
		State:               r.PostForm.Get("state"),
		CodeChallenge:       r.PostForm.Get("code_challenge"),
		CodeChallengeMethod: r.PostForm.Get("code_challenge_method"),
		Email:               r.PostForm.Get("email"),
		Password:            r.PostForm.Get("password"),
	}
	if tc, ok := tenant.FromContext(r.Context()); ok {
		req.TenantID = tc.ID
	}

	resp, err := h.AuthorizeService.Authorize(r.Context(), req)
	if err != nil {
		writeAuthorizeError(w, r, err)
		return
	}

	target, err := url.Parse(resp.RedirectURI)
	if err != nil {
		oauthsdk.ErrServerError.WriteError(w)
		return
	}
	params := target.Query()
	params.Set("code", resp.Code)
	if resp.State != "" {
		params.Set("state", resp.State)
	}
	target.RawQuery = params.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}

func writeAuthorizeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		oauthsdk.ErrInvalidRequest.WriteError(w)
	case errors.Is(err, service.ErrInvalidClient):
		oauthsdk.ErrInvalidClient.WriteError(w)
	case errors.Is(err, service.ErrUnsupportedResponseType):
		oauthsdk.ErrUnsupportedResponseType.WriteError(w)
	case errors.Is(err, service.ErrInvalidScope):
		oauthsdk.ErrInvalidScope.WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		oauthsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, tenant.ErrNoSession):
		oauthsdk.ErrTenantRequired.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("authorize failed", "error", err)
		oauthsdk.ErrServerError.WriteError(w)
	}
}
