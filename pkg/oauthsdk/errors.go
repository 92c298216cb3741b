package oauthsdk

import (
	"fmt"
	"net/http"

	"github.com/tillworks/tillsuite/pkg/httpx"
)

// OAuth2 error codes per RFC 6749, plus the suite's bearer-gate and tenant
// resolution codes.
const (
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeInvalidClient           = "invalid_client"
	ErrorCodeInvalidGrant            = "invalid_grant"
	ErrorCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrorCodeInvalidScope            = "invalid_scope"
	ErrorCodeServerError             = "server_error"
	ErrorCodeInvalidToken            = "invalid_token"
	ErrorCodeTokenExpired            = "token_expired"
	ErrorCodeUnauthorized            = "unauthorized"
	ErrorCodeInsufficientScope       = "insufficient_scope"
	ErrorCodeAccessDenied            = "access_denied"
	ErrorCodeUnsupportedResponseType = "unsupported_response_type"
	ErrorCodeTenantNotFound          = "tenant_not_found"
	ErrorCodeTenantRequired          = "tenant_id_required"
)

// Error represents a structured error response per RFC 6749. It implements
// the error interface and is written verbatim to the wire, so the description
// never carries internal detail.
type Error struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine-readable error code (e.g., "invalid_grant")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this Error to an HTTP response writer.
func (e *Error) WriteError(w http.ResponseWriter) {
	httpx.WriteJSONError(w, e.StatusCode, e.Code, e.Description)
}

var (
	// ErrInvalidRequest is returned when the request is missing a required
	// parameter, includes an invalid parameter value, or is otherwise malformed.
	ErrInvalidRequest = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidClient is returned when the client is unknown or client
	// authentication failed.
	ErrInvalidClient = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidClient,
		Description: "invalid client",
	}

	// ErrInvalidGrant covers invalid, expired, replayed and mismatched grants
	// alike; callers cannot distinguish "never existed" from "expired".
	ErrInvalidGrant = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidGrant,
		Description: "the provided grant is invalid or expired",
	}

	// ErrUnsupportedGrantType is returned for any grant_type the token
	// endpoint does not dispatch on.
	ErrUnsupportedGrantType = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedGrantType,
		Description: "grant type not supported",
	}

	// ErrInvalidScope is returned when the requested scope exceeds what the
	// client is registered for.
	ErrInvalidScope = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidScope,
		Description: "requested scope is invalid",
	}

	// ErrServerError hides unexpected failures behind a generic code; the
	// full context goes to the log, never to the client.
	ErrServerError = &Error{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	// ErrInvalidContentType is returned when the request body arrives in an
	// encoding the endpoint does not read.
	ErrInvalidContentType = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "content-type must be application/x-www-form-urlencoded or application/json",
	}

	// ErrInvalidFormBody is returned when the form body cannot be parsed.
	ErrInvalidFormBody = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "invalid form body",
	}

	// ErrUnauthorized is returned when no bearer token accompanies a
	// protected request.
	ErrUnauthorized = &Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthorized,
		Description: "authentication required",
	}

	// ErrInvalidToken is returned when the access token fails verification or
	// carries no subject.
	ErrInvalidToken = &Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid or malformed",
	}

	// ErrTokenExpired is returned when the access token's exp has passed.
	ErrTokenExpired = &Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenExpired,
		Description: "the access token has expired",
	}

	// ErrInvalidCredentials is returned when interactive authentication fails.
	ErrInvalidCredentials = &Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthorized,
		Description: "invalid username or password",
	}

	// ErrInsufficientScope is returned when the token lacks required scopes.
	ErrInsufficientScope = &Error{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInsufficientScope,
		Description: "the access token does not have the required scopes",
	}

	// ErrTenantAccessDenied is returned when the authenticated user is not a
	// member of the resolved tenant.
	ErrTenantAccessDenied = &Error{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccessDenied,
		Description: "user does not have access to this tenant",
	}

	// ErrUnsupportedResponseType is returned when the client asks for a
	// response type outside its registered set.
	ErrUnsupportedResponseType = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedResponseType,
		Description: "response type not supported",
	}

	// ErrTenantNotFound is returned when an explicit subdomain override names
	// an unknown tenant. An explicit-but-wrong subdomain is a client error,
	// not an absence of input.
	ErrTenantNotFound = &Error{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeTenantNotFound,
		Description: "unknown tenant subdomain",
	}

	// ErrTenantIDFormat is returned for X-Tenant-ID values that are not
	// well-formed UUIDs. Malformed ids are rejected, never coerced.
	ErrTenantIDFormat = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "invalid tenant ID format",
	}

	// ErrTenantRequired is returned when no resolution strategy produced a
	// tenant for a route that needs one.
	ErrTenantRequired = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeTenantRequired,
		Description: "a tenant could not be determined for this request",
	}
)
