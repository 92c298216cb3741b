package tenant

import (
	"errors"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/tillworks/tillsuite/internal/auth/store"
	"github.com/tillworks/tillsuite/pkg/httpx"
	"github.com/tillworks/tillsuite/pkg/oauthsdk"
)

// Header names for explicit tenant selection. Internal only; edge proxies
// must strip them from external traffic.
const (
	HeaderTenantID        = "X-Tenant-ID"
	HeaderTenantSubdomain = "X-Tenant-Subdomain"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// ValidTenantID reports whether s is a syntactically valid tenant UUID.
func ValidTenantID(s string) bool { return uuidPattern.MatchString(s) }

// Strategy is one step of the resolution chain. It returns the resolved
// tenant, ok=false to fall through to the next strategy, or an error to
// abort the request. A strategy must never both resolve and error.
type Strategy interface {
	Name() string
	Resolve(r *http.Request) (Context, bool, error)
}

// Resolver walks an ordered strategy list, first match wins. The order is
// fixed at construction; later strategies never override an earlier match.
type Resolver struct {
	strategies []Strategy
	public     *PublicRoutes
}

// Config wires a Resolver. DevHosts lists hostnames excluded from
// subdomain parsing so local traffic falls through to the header
// strategies.
type Config struct {
	Directory   Directory
	DevHosts    []string
	PublicPaths []string
}

// NewResolver builds the default chain: path prefix, authenticated claim,
// host subdomain, subdomain header, tenant-id header.
func NewResolver(cfg Config) *Resolver {
	pub := NewPublicRoutes(cfg.PublicPaths)
	return &Resolver{
		strategies: []Strategy{
			&PathPrefixStrategy{Directory: cfg.Directory},
			&AuthenticatedClaimStrategy{Directory: cfg.Directory},
			&HostSubdomainStrategy{Directory: cfg.Directory, DevHosts: cfg.DevHosts},
			&SubdomainHeaderStrategy{Directory: cfg.Directory},
			&TenantIDHeaderStrategy{Directory: cfg.Directory},
		},
		public: pub,
	}
}

// Resolve runs the chain for r. When no strategy matches and the route is
// not public, it returns ErrTenantRequired.
func (rs *Resolver) Resolve(r *http.Request) (Context, bool, error) {
	for _, s := range rs.strategies {
		tc, ok, err := s.Resolve(r)
		if err != nil {
			return Context{}, false, err
		}
		if ok {
			return tc, true, nil
		}
	}
	if rs.public.Match(r.URL.Path) {
		return Context{}, false, nil
	}
	return Context{}, false, oauthsdk.ErrTenantRequired
}

// PathPrefixStrategy matches the first path segment case-insensitively
// against the subdomain table, so /acme/api/... routes to the acme tenant.
type PathPrefixStrategy struct {
	Directory Directory
}

func (s *PathPrefixStrategy) Name() string { return "path_prefix" }

func (s *PathPrefixStrategy) Resolve(r *http.Request) (Context, bool, error) {
	seg := firstPathSegment(r.URL.Path)
	if seg == "" {
		return Context{}, false, nil
	}
	t, err := s.Directory.GetTenantBySubdomain(r.Context(), strings.ToLower(seg))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Context{}, false, nil
		}
		return Context{}, false, err
	}
	return Context{ID: t.ID, Name: t.Name, Code: t.Code}, true, nil
}

// AuthenticatedClaimStrategy reuses the tenant id from an already
// authenticated identity when the gate ran earlier in the pipeline.
type AuthenticatedClaimStrategy struct {
	Directory Directory
}

func (s *AuthenticatedClaimStrategy) Name() string { return "authenticated_claim" }

func (s *AuthenticatedClaimStrategy) Resolve(r *http.Request) (Context, bool, error) {
	id, ok := httpx.IdentityFromContext(r.Context())
	if !ok || id.TenantID == "" {
		return Context{}, false, nil
	}
	t, err := s.Directory.GetTenant(r.Context(), id.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Context{}, false, nil
		}
		return Context{}, false, err
	}
	return Context{ID: t.ID, Name: t.Name, Code: t.Code}, true, nil
}

// HostSubdomainStrategy parses the request host. It only applies when the
// host has at least three dot-separated labels and is not a loopback or
// dev-platform host, so local traffic falls through to the header
// strategies.
type HostSubdomainStrategy struct {
	Directory Directory
	DevHosts  []string
}

func (s *HostSubdomainStrategy) Name() string { return "host_subdomain" }

func (s *HostSubdomainStrategy) Resolve(r *http.Request) (Context, bool, error) {
	host := requestHost(r)
	if host == "" || s.excluded(host) {
		return Context{}, false, nil
	}
	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return Context{}, false, nil
	}
	sub := strings.ToLower(labels[0])
	if sub == "" || sub == "www" {
		return Context{}, false, nil
	}
	t, err := s.Directory.GetTenantBySubdomain(r.Context(), sub)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Context{}, false, oauthsdk.ErrTenantNotFound
		}
		return Context{}, false, err
	}
	return Context{ID: t.ID, Name: t.Name, Code: t.Code}, true, nil
}

func (s *HostSubdomainStrategy) excluded(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return true
	}
	for _, dev := range s.DevHosts {
		if host == dev || strings.HasSuffix(host, "."+dev) {
			return true
		}
	}
	return false
}

// SubdomainHeaderStrategy honours the X-Tenant-Subdomain override. An
// unknown subdomain is a hard 404, not a fallthrough, because an explicit
// but wrong value is a client error rather than an absence of input.
type SubdomainHeaderStrategy struct {
	Directory Directory
}

func (s *SubdomainHeaderStrategy) Name() string { return "subdomain_header" }

func (s *SubdomainHeaderStrategy) Resolve(r *http.Request) (Context, bool, error) {
	sub := strings.TrimSpace(r.Header.Get(HeaderTenantSubdomain))
	if sub == "" {
		return Context{}, false, nil
	}
	t, err := s.Directory.GetTenantBySubdomain(r.Context(), strings.ToLower(sub))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Context{}, false, oauthsdk.ErrTenantNotFound
		}
		return Context{}, false, err
	}
	return Context{ID: t.ID, Name: t.Name, Code: t.Code}, true, nil
}

// TenantIDHeaderStrategy accepts an explicit X-Tenant-ID. Values that are
// not well-formed UUIDs are rejected with 400, never coerced.
type TenantIDHeaderStrategy struct {
	Directory Directory
}

func (s *TenantIDHeaderStrategy) Name() string { return "tenant_id_header" }

func (s *TenantIDHeaderStrategy) Resolve(r *http.Request) (Context, bool, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderTenantID))
	if raw == "" {
		return Context{}, false, nil
	}
	// The regex pins the strict dashed form; uuid.Parse would also accept
	// urn: and braced spellings, so it only canonicalizes here.
	if !ValidTenantID(raw) {
		return Context{}, false, oauthsdk.ErrTenantIDFormat
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return Context{}, false, oauthsdk.ErrTenantIDFormat
	}
	id := u.String()
	t, err := s.Directory.GetTenant(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Context{}, false, oauthsdk.ErrTenantNotFound
		}
		return Context{}, false, err
	}
	return Context{ID: t.ID, Name: t.Name, Code: t.Code}, true, nil
}

// PublicRoutes is the small allow-list of path prefixes that bypass tenant
// resolution entirely.
type PublicRoutes struct {
	prefixes []string
}

func NewPublicRoutes(prefixes []string) *PublicRoutes {
	return &PublicRoutes{prefixes: prefixes}
}

func (p *PublicRoutes) Match(path string) bool {
	for _, prefix := range p.prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
		if strings.HasSuffix(prefix, "/") && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func firstPathSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return path
}

func requestHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}
