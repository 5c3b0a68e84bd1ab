package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
	"github.com/townhall-app/townhall/pkg/httpx"
	"github.com/townhall-app/townhall/pkg/jwtx"
	"github.com/townhall-app/townhall/pkg/slogx"

	_ "github.com/townhall-app/townhall/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	db           Pinger

	metrics *httpx.Metrics
	limiter *httpx.RateLimiter
	limits  httpx.RateLimitProfiles

	Auth  *AuthHandler
	OAuth *OAuthHandler
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	db Pinger,
	logger *slog.Logger,
	metrics *httpx.Metrics,
	limits httpx.RateLimitProfiles,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		db:           db,
		logger:       logger,
		metrics:      metrics,
		limiter:      httpx.NewRateLimiter(metrics),
		limits:       limits,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// Use appends middleware outside the mux. CORS goes here so preflight
// requests are answered before routing.
func (r *Router) Use(mws ...httpx.Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerOAuth()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Town Hall Authentication API
//	@version		1.0.0
//	@description	Account registration with e-mail OTP verification, password and Google/GitHub sign-in for Town Hall.
//	@description
//	@description				Access tokens are HS256 JWTs valid for 15 minutes. Refresh tokens are opaque and valid for 30 days.
//
//	@contact.name				Town Hall Team
//	@contact.url				https://github.com/townhall-app/townhall
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:5000
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var inner http.Handler = r.Mux
	if r.metrics != nil {
		inner = r.metrics.Middleware()(inner)
	}
	httpx.Chain(inner, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := r.Auth

	// Credential endpoints - strict limit by IP + e-mail to slow down
	// password guessing and OTP brute force.
	strict := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, r.limiter.ByIPAndJSONField(r.limits.Strict, "email"))
	}
	r.Mux.Handle("POST /auth/register", strict(h.HandleRegister))
	r.Mux.Handle("POST /auth/verify", strict(h.HandleVerify))
	r.Mux.Handle("POST /auth/resend-otp", strict(h.HandleResendOTP))
	r.Mux.Handle("POST /auth/login", strict(h.HandleLogin))

	// Token endpoints - moderate limit by IP
	r.Mux.Handle("POST /auth/refresh-token",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			r.limiter.ByIP(r.limits.Moderate),
		),
	)
	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.limiter.ByIP(r.limits.Moderate),
		),
	)

	// Authenticated read - lenient limit by user
	r.Mux.Handle("GET /auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(string(domain.RoleDeveloper), string(domain.RoleTester)),
			r.limiter.ByUser(r.limits.Lenient),
		),
	)
}

func (r *Router) registerOAuth() {
	if r.OAuth == nil {
		return
	}
	h := r.OAuth

	r.Mux.Handle("GET /auth/{provider}",
		httpx.Chain(http.HandlerFunc(h.HandleStart),
			r.limiter.ByIP(r.limits.Moderate),
		),
	)
	r.Mux.Handle("GET /auth/{provider}/callback",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			r.limiter.ByIP(r.limits.Moderate),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			r.limiter.ByIP(r.limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.db),
			r.limiter.ByIP(r.limits.Lenient),
		),
	)
	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}
}
