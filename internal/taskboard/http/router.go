package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/metrics"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"

	_ "github.com/aussiebroadwan/taskboard/api/taskboard" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RateLimits selects the limiter profile per route class.
type RateLimits struct {
	Strict   httpx.RateLimitConfig // register, login
	Moderate httpx.RateLimitConfig // refresh, logout
	Lenient  httpx.RateLimitConfig // authenticated traffic
}

// DefaultRateLimits returns the httpx profiles, including any environment
// overrides.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Lenient:  httpx.LenientLimit,
	}
}

// Options carries the router's shared dependencies.
type Options struct {
	Verifier     jwtx.Verifier
	Store        store.Store
	Logger       *slog.Logger
	BuildVersion string
	Cookie       CookieConfig
	CORSOrigins  []string
	RateLimits   RateLimits
	Metrics      *metrics.Metrics // nil disables /metrics
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	cookie       CookieConfig
	limits       RateLimits
	metrics      *metrics.Metrics

	SessionService *service.SessionService
	AccountService *service.AccountService
	TaskService    *service.TaskService
}

func NewRouter(opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     opts.Verifier,
		buildVersion: opts.BuildVersion,
		startTime:    time.Now(),
		logger:       opts.Logger,
		store:        opts.Store,
		cookie:       opts.Cookie,
		limits:       opts.RateLimits,
		metrics:      opts.Metrics,
	}

	// Outermost first. Metrics must be last so it sees the matched pattern.
	r.middlewares = []httpx.Middleware{slogx.HTTPMiddleware(r.logger)}
	if len(opts.CORSOrigins) > 0 {
		r.middlewares = append(r.middlewares, httpx.CORS(opts.CORSOrigins))
	}
	if r.metrics != nil {
		r.middlewares = append(r.middlewares, r.metrics.Middleware)
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTasks()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Taskboard API
//	@version		0.1.0
//	@description	Multi-tenant task tracking with short lived JWT access tokens and
//	@description	revocable refresh tokens delivered as an HttpOnly cookie.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/taskboard
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				HS256 access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	register := &RegisterHandler{Sessions: r.SessionService, Cookie: r.cookie}
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(register,
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)

	// Limited per address and per email so one client cannot spray
	// guesses across accounts, nor many clients at one account.
	login := &LoginHandler{Sessions: r.SessionService, Cookie: r.cookie}
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(login,
			httpx.RateLimitByIPAndJSONField(r.limits.Strict, "email"),
		),
	)

	refresh := &RefreshHandler{Sessions: r.SessionService, Cookie: r.cookie}
	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(refresh,
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)

	logout := httpx.Chain(&LogoutHandler{Sessions: r.SessionService, Cookie: r.cookie},
		httpx.RateLimitByIP(r.limits.Moderate),
	)
	r.Mux.Handle("POST /auth/logout", logout)

	// Browsers only send the cookie below its path, so logout is also
	// served there.
	if p := r.cookie.logoutPath(); p != "/auth/logout" {
		r.Mux.Handle("POST "+p, logout)
	}

	logoutAll := &LogoutAllHandler{Sessions: r.SessionService, Cookie: r.cookie}
	r.Mux.Handle("POST /auth/logout-all",
		httpx.Chain(logoutAll,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitBySubject(r.limits.Moderate),
		),
	)

	me := &MeHandler{Accounts: r.AccountService}
	r.Mux.Handle("GET /auth/me",
		httpx.Chain(me,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitBySubject(r.limits.Lenient),
		),
	)
}

func (r *Router) registerTasks() {
	h := &TaskHandler{Tasks: r.TaskService}

	// One limiter shared by all task routes.
	limit := httpx.RateLimitBySubject(r.limits.Lenient)
	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, httpx.AuthnMiddleware(r.verifier), limit)
	}

	r.Mux.Handle("GET /tasks", secured(h.List))
	r.Mux.Handle("POST /tasks", secured(h.Create))
	r.Mux.Handle("GET /tasks/{id}", secured(h.Get))
	r.Mux.Handle("PATCH /tasks/{id}", secured(h.Update))
	r.Mux.Handle("DELETE /tasks/{id}", secured(h.Delete))
	r.Mux.Handle("POST /tasks/{id}/toggle", secured(h.Toggle))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))

	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}
}
