package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WriteJSON encodes v to the response with cache suppression already
// applied. Every JSON body this service emits carries tokens, grants or
// identity data, so nothing it writes is cacheable.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONError emits the RFC 6749 error object shape used across the
// token, bearer and tenant-resolution surfaces. Callers add any
// scheme-specific headers (WWW-Authenticate) before calling.
func WriteJSONError(w http.ResponseWriter, status int, code, description string) {
	WriteJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

// NoCache marks the response uncacheable. Pragma covers HTTP/1.0
// intermediaries that ignore Cache-Control.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ParseSpaceDelimitedFields splits an OAuth2 space-delimited value (scope
// strings) into its fields, nil when the value is empty or blank.
func ParseSpaceDelimitedFields(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
