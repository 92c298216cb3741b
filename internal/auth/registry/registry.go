// Package registry holds the static OAuth2 client catalog. Clients are
// loaded once at process start from a YAML file and are immutable at
// runtime; there is no dynamic registration surface.
package registry

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tillworks/tillsuite/internal/auth/domain"
	"github.com/tillworks/tillsuite/pkg/cryptox"
)

// ErrClientNotFound is returned by Lookup for unknown client ids.
var ErrClientNotFound = errors.New("registry: client not found")

// clientFile is the YAML shape of one registered client.
type clientFile struct {
	ClientID      string   `yaml:"client_id"`
	ClientSecret  string   `yaml:"client_secret"`
	Name          string   `yaml:"name"`
	Type          string   `yaml:"type"`
	RedirectURIs  []string `yaml:"redirect_uris"`
	GrantTypes    []string `yaml:"grant_types"`
	ResponseTypes []string `yaml:"response_types"`
	Scopes        []string `yaml:"scopes"`
}

type registryFile struct {
	Clients []clientFile `yaml:"clients"`
}

type entry struct {
	client   domain.Client
	patterns []*regexp.Regexp
}

// Registry answers client lookups and redirect URI checks. Reads are
// lock-free because the map never changes after Load.
type Registry struct {
	clients map[string]entry
}

// Load reads and validates the client catalog at path. Any malformed
// entry fails the whole load; a half-validated registry must never serve.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse builds a Registry from YAML bytes.
func Parse(raw []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("registry: parse: %w", err)
	}
	if len(file.Clients) == 0 {
		return nil, errors.New("registry: no clients configured")
	}

	clients := make(map[string]entry, len(file.Clients))
	for _, cf := range file.Clients {
		c, patterns, err := buildClient(cf)
		if err != nil {
			return nil, err
		}
		if _, dup := clients[c.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate client id %q", c.ID)
		}
		clients[c.ID] = entry{client: c, patterns: patterns}
	}
	return &Registry{clients: clients}, nil
}

func buildClient(cf clientFile) (domain.Client, []*regexp.Regexp, error) {
	if cf.ClientID == "" {
		return domain.Client{}, nil, errors.New("registry: client with empty client_id")
	}
	ct := domain.ClientType(cf.Type)
	switch ct {
	case domain.ClientTypePublic, domain.ClientTypeConfidential:
	default:
		return domain.Client{}, nil, fmt.Errorf("registry: client %q: unknown type %q", cf.ClientID, cf.Type)
	}
	if ct == domain.ClientTypeConfidential && cf.ClientSecret == "" {
		return domain.Client{}, nil, fmt.Errorf("registry: confidential client %q has no secret", cf.ClientID)
	}
	if ct == domain.ClientTypePublic && cf.ClientSecret != "" {
		return domain.Client{}, nil, fmt.Errorf("registry: public client %q must not carry a secret", cf.ClientID)
	}
	if len(cf.RedirectURIs) == 0 && containsString(cf.GrantTypes, "authorization_code") {
		return domain.Client{}, nil, fmt.Errorf("registry: client %q allows authorization_code but has no redirect URIs", cf.ClientID)
	}

	patterns := make([]*regexp.Regexp, len(cf.RedirectURIs))
	for i, uri := range cf.RedirectURIs {
		re, err := compileRedirectURI(uri)
		if err != nil {
			return domain.Client{}, nil, fmt.Errorf("registry: client %q: redirect uri %q: %w", cf.ClientID, uri, err)
		}
		patterns[i] = re
	}

	secretHash := ""
	if cf.ClientSecret != "" {
		h, err := cryptox.HashPassword(cf.ClientSecret)
		if err != nil {
			return domain.Client{}, nil, fmt.Errorf("registry: client %q: hash secret: %w", cf.ClientID, err)
		}
		secretHash = h
	}

	grants := cf.GrantTypes
	if len(grants) == 0 {
		grants = []string{"authorization_code", "refresh_token"}
	}
	responses := cf.ResponseTypes
	if len(responses) == 0 {
		responses = []string{"code"}
	}
	scopes := cf.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid"}
	}

	return domain.Client{
		ID:            cf.ClientID,
		Name:          cf.Name,
		SecretHash:    secretHash,
		RedirectURIs:  cf.RedirectURIs,
		GrantTypes:    grants,
		ResponseTypes: responses,
		Scopes:        scopes,
		Type:          ct,
	}, patterns, nil
}

// compileRedirectURI turns a registered URI into an anchored regex. At most
// one "*" segment is allowed and it matches a single path segment only, so
// https://app.example.com/*/callback admits /tenant-a/callback but never
// /a/b/callback.
func compileRedirectURI(uri string) (*regexp.Regexp, error) {
	if uri == "" {
		return nil, errors.New("empty redirect uri")
	}
	if strings.Count(uri, "*") > 1 {
		return nil, errors.New("at most one wildcard segment is allowed")
	}
	quoted := regexp.QuoteMeta(uri)
	pattern := "^" + strings.Replace(quoted, `\*`, `[^/]+`, 1) + "$"
	return regexp.Compile(pattern)
}

// Lookup returns the registered client or ErrClientNotFound.
func (r *Registry) Lookup(clientID string) (domain.Client, error) {
	e, ok := r.clients[clientID]
	if !ok {
		return domain.Client{}, ErrClientNotFound
	}
	return e.client, nil
}

// ValidateRedirectURI reports whether uri is allowed for the client. Exact
// registrations match literally; wildcard registrations match through their
// compiled pattern.
func (r *Registry) ValidateRedirectURI(clientID, uri string) bool {
	e, ok := r.clients[clientID]
	if !ok || uri == "" {
		return false
	}
	for i, registered := range e.client.RedirectURIs {
		if registered == uri {
			return true
		}
		if strings.Contains(registered, "*") && e.patterns[i].MatchString(uri) {
			return true
		}
	}
	return false
}

// VerifySecret checks a presented client secret against the stored hash.
// Public clients always fail; they have nothing to present.
func (r *Registry) VerifySecret(clientID, secret string) bool {
	e, ok := r.clients[clientID]
	if !ok || e.client.SecretHash == "" {
		return false
	}
	return cryptox.VerifyPassword(secret, e.client.SecretHash) == nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
