package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/tillworks/tillsuite/internal/auth/service"
	"github.com/tillworks/tillsuite/internal/auth/store"
	"github.com/tillworks/tillsuite/internal/tenant"
	"github.com/tillworks/tillsuite/pkg/httpx"
	"github.com/tillworks/tillsuite/pkg/jwtx"
	"github.com/tillworks/tillsuite/pkg/slogx"
)

// PublicPaths bypass tenant resolution: the token endpoint carries its
// tenant inside the grant record, and the discovery/health surfaces are
// tenant-free by nature.
var PublicPaths = []string{
	"/oauth2/token",
	"/oauth2/revoke",
	"/.well-known",
	"/healthz",
	"/readyz",
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	resolver *tenant.Resolver
	access   *tenant.AccessValidator

	AuthorizeService *service.AuthorizeService
	TokenService     *service.TokenService
	UserInfoService  *service.UserInfoService
}

func NewRouter(
	verifier jwtx.Verifier,
	issuer, buildVersion string,
	st store.Store,
	resolver *tenant.Resolver,
	access *tenant.AccessValidator,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slogx.Discard()
	}
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		resolver:     resolver,
		access:       access,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerUserInfo()
	r.registerSystem()
}

func (r *Router) registerOAuth2() {
	authorizeHandler := &AuthorizeHandler{
		AuthorizeService: r.AuthorizeService,
		Logger:           r.logger,
	}
	resolveTenant := tenant.Middleware(r.resolver)

	// GET /authorize renders the consent form; the authorization request
	// must already resolve to a tenant so the form submits into the right
	// user directory.
	r.Mux.Handle("GET /oauth2/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandleGet),
			resolveTenant,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /authorize carries credentials; strict limit against brute force.
	r.Mux.Handle("POST /oauth2/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandlePost),
			resolveTenant,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth2/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	revokeHandler := &RevokeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth2/revoke",
		httpx.Chain(revokeHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /.well-known/oauth-authorization-server",
		httpx.Chain(DiscoveryHandler(r.issuer),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerUserInfo() {
	h := &UserInfoHandler{UserInfoService: r.UserInfoService}

	// Bearer gate first so the resolver's authenticated-claim strategy can
	// pick the tenant straight off the verified token, then confirm the
	// caller may act in whatever tenant won resolution.
	secured := httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyScope("openid"),
		tenant.Middleware(r.resolver),
		tenant.RequireAccess(r.access),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)

	r.Mux.Handle("GET /oauth2/userinfo", secured)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /healthz",
		httpx.Chain(HealthzHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
