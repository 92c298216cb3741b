package http

import (
	"net/http"

	"github.com/tillworks/tillsuite/internal/auth/service"
	"github.com/tillworks/tillsuite/pkg/httpx"
	"github.com/tillworks/tillsuite/pkg/oauthsdk"
	"github.com/tillworks/tillsuite/pkg/slogx"
)

// UserInfoHandler serves GET /oauth2/userinfo. It runs behind the bearer
// gate, so the identity in context is already verified.
type UserInfoHandler struct {
	UserInfoService *service.UserInfoService
}

func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ident, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		oauthsdk.ErrUnauthorized.WriteError(w)
		return
	}

	resp, err := h.UserInfoService.UserInfo(r.Context(), ident.UserID, ident.TenantID, ident.Scope)
	if err != nil {
		slogx.FromContext(r.Context()).Error("userinfo failed", "error", err)
		oauthsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}
