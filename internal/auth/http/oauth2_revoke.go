package http

import (
	"net/http"

	"github.com/tillworks/tillsuite/internal/auth/service"
	"github.com/tillworks/tillsuite/pkg/slogx"
)

// RevokeHandler serves POST /oauth2/revoke per RFC 7009. Revocation always
// answers 200, whether or not the token existed; the endpoint leaks nothing
// about the token store.
type RevokeHandler struct {
	TokenService *service.TokenService
}

func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params, oerr := decodeGrantParams(r)
	if oerr != nil {
		oerr.WriteError(w)
		return
	}

	token := params.Get("token")
	if err := h.TokenService.RevokeToken(r.Context(), token); err != nil {
		// Still 200: the caller cannot act on a storage failure, and a
		// retry hits the same idempotent delete.
		slogx.FromContext(r.Context()).Error("revocation failed", "error", err)
	}

	w.WriteHeader(http.StatusOK)
}
