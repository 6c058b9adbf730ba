package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shophub/auth/internal/auth/domain"
	"github.com/shophub/auth/internal/auth/service"
	"github.com/shophub/auth/internal/auth/store"
	"github.com/shophub/auth/pkg/httpx"
	"github.com/shophub/auth/pkg/slogx"

	_ "github.com/shophub/auth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	SessionService *service.SessionService
	StepUpService  *service.StepUpService
	AuditService   *service.AuditService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			ShopHub Authentication Service API
//	@version		0.1.0
//	@description	Authentication and session-trust service for the ShopHub backend: credential
//	@description	verification with brute-force lockout, access/refresh token issuance and rotation,
//	@description	single-active-session enforcement for admins, and step-up confirmation tokens
//	@description	gating destructive admin operations.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authn builds the per-request token validation middleware. It decodes the
// bearer token when present and, for admin tokens, cross-checks the live
// session marker.
func (r *Router) authn() httpx.Middleware {
	return httpx.Authenticator(r.SessionService.Codec, r.SessionService)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{SessionService: r.SessionService, AuditService: r.AuditService}

	r.Mux.Handle("POST /v1/auth/register", http.HandlerFunc(h.Register))
	r.Mux.Handle("POST /v1/auth/login", http.HandlerFunc(h.Login))
	r.Mux.Handle("POST /v1/auth/refresh", http.HandlerFunc(h.Refresh))
	r.Mux.Handle("POST /v1/auth/logout", http.HandlerFunc(h.Logout))

	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(http.HandlerFunc(h.Me),
			r.authn(),
			httpx.RequireAuthenticated(),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{
		SessionService: r.SessionService,
		StepUpService:  r.StepUpService,
		AuditService:   r.AuditService,
		Store:          r.store,
	}

	admin := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			r.authn(),
			httpx.RequireRole(string(domain.RoleAdmin)),
		)
	}

	r.Mux.Handle("POST /v1/admin/confirm", admin(h.Confirm))
	r.Mux.Handle("DELETE /v1/admin/accounts/{id}", admin(h.DeleteAccount))
	r.Mux.Handle("GET /v1/admin/audit", admin(h.ListAudit))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.store))
}
