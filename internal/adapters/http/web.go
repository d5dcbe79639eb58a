package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"skykeen/internal/adapters/backend"
	"skykeen/internal/adapters/email"
	"skykeen/internal/adapters/http/middleware"
	"skykeen/internal/adapters/http/perf"
	auditStore "skykeen/internal/adapters/storage/audit"
	"skykeen/internal/domain/registration"
)

// Deps holds the collaborators shared by both servers.
type Deps struct {
	Backend   *backend.Client
	Audit     auditStore.Store // optional
	Mailer    email.Sender     // optional
	MailFrom  string
	ReplyTo   string
	Collector *perf.Collector
}

// Options configures the security middleware of a server.
type Options struct {
	CSRFKey        []byte
	SessionKey     []byte // admin only
	Secure         bool
	TrustedOrigins []string
	SlowRequest    time.Duration
	// ImageOrigins are extra img-src origins, normally the backend's media host.
	ImageOrigins []string
}

// RateLimitPerSecond controls the per-IP rate limit on unsafe methods. Tests can increase this.
var RateLimitPerSecond = 10

// maxRequestBody bounds a request body: two uploads plus the text fields.
const maxRequestBody = 2*registration.MaxUploadBytes + 1<<20

const (
	siteCSRFCookie   = "skykeen_site_csrf"
	adminCSRFCookie  = "skykeen_admin_csrf"
	adminSessionName = "skykeen_admin_session"
)

// app carries handler dependencies for one server.
type app struct {
	deps     Deps
	sessions *middleware.SessionStore
	cookies  *middleware.SessionCookies
}

// Server is a configured handler plus the background resources it owns.
type Server struct {
	http.Handler
	limiter *middleware.RateLimiter
}

// Close stops background work of the middleware.
func (s *Server) Close() {
	s.limiter.Close()
}

// NewSiteMux wires the public marketing site and registration form.
func NewSiteMux(deps Deps, opts Options) *Server {
	a := &app{deps: deps}

	mux := http.NewServeMux()
	mux.Handle("GET /static/", staticHandler())
	mux.HandleFunc("GET /{$}", a.handleHome)
	mux.HandleFunc("POST /register", a.handleRegister)
	mux.HandleFunc("GET /register", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/#register", http.StatusSeeOther)
	})
	mux.HandleFunc("/", a.handleNotFound)

	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Applied inside out: RateLimit -> CSRF -> LimitBody -> SecurityHeaders -> Timing.
	// CSRF parses the multipart body, so the size limit sits outside it and
	// oversized submissions are rendered by TooLarge.
	h := middleware.Chain(mux,
		middleware.RateLimit(limiter),
		middleware.CSRF(opts.CSRFKey, middleware.CSRFOptions{
			CookieName:     siteCSRFCookie,
			Secure:         opts.Secure,
			TrustedOrigins: opts.TrustedOrigins,
			TooLarge:       http.HandlerFunc(a.handleTooLarge),
		}),
		middleware.LimitBody(maxRequestBody),
		middleware.SecurityHeaders(opts.ImageOrigins...),
		middleware.Timing(deps.Collector, opts.SlowRequest),
	)
	return &Server{Handler: h, limiter: limiter}
}

// NewAdminMux wires the admin dashboard.
func NewAdminMux(deps Deps, opts Options) *Server {
	a := &app{
		deps:     deps,
		sessions: middleware.NewSessionStore(middleware.SessionTTL),
		cookies:  middleware.NewSessionCookies(adminSessionName, opts.SessionKey, opts.Secure),
	}

	mux := http.NewServeMux()
	mux.Handle("GET /static/", staticHandler())
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /login", a.handleLoginPage)
	mux.HandleFunc("POST /login", a.handleLogin)
	mux.HandleFunc("POST /logout", a.handleLogout)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /dashboard", a.handleDashboard)
	protected.HandleFunc("GET /dashboard/registrations/{id}", a.handleRegistrationDetail)
	protected.HandleFunc("POST /dashboard/registrations/{id}/verify", a.handleVerify)
	protected.HandleFunc("GET /dashboard/registrations/{id}/delete", a.handleDeleteConfirm)
	protected.HandleFunc("POST /dashboard/registrations/{id}/delete", a.handleDelete)
	protected.HandleFunc("GET /dashboard/audit", a.handleAuditTrail)
	protected.HandleFunc("GET /dashboard/perf", a.handlePerf)
	mux.Handle("/dashboard", middleware.RequireAuth(protected))
	mux.Handle("/dashboard/", middleware.RequireAuth(protected))
	mux.HandleFunc("/", a.handleNotFound)

	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Applied inside out: RateLimit -> Auth -> CSRF -> LimitBody -> SecurityHeaders -> Timing
	h := middleware.Chain(mux,
		middleware.RateLimit(limiter),
		middleware.Auth(a.sessions, a.cookies, a.verifySession),
		middleware.CSRF(opts.CSRFKey, middleware.CSRFOptions{
			CookieName:     adminCSRFCookie,
			Secure:         opts.Secure,
			TrustedOrigins: opts.TrustedOrigins,
		}),
		middleware.LimitBody(1<<20),
		middleware.SecurityHeaders(opts.ImageOrigins...),
		middleware.Timing(deps.Collector, opts.SlowRequest),
	)
	return &Server{Handler: h, limiter: limiter}
}

// verifySession asks the backend whether the session's cookies are still valid.
func (a *app) verifySession(ctx context.Context, jar http.CookieJar) (bool, error) {
	status, err := a.deps.Backend.WithJar(jar).CheckAuth(ctx)
	if errors.Is(err, backend.ErrUnreachable) {
		return false, errors.Join(middleware.ErrBackendDown, err)
	}
	if err != nil {
		return false, err
	}
	return status.Authenticated, nil
}

// backendFor returns a client bound to the request's admin session.
func (a *app) backendFor(r *http.Request) (*backend.Client, middleware.Session) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	return a.deps.Backend.WithJar(sess.Jar), sess
}
