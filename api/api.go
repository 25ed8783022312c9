package api

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/mjuauth/auth"
	"github.com/jmcleod/mjuauth/service"
)

const (
	apiName        = "MJU Univ Auth API"
	defaultWorkers = 8
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	orch        *auth.Orchestrator
	registry    *service.Registry
	pool        *workerPool
	rateLimiter *loginRateLimiter
	audit       *auditLogger
	alertFn     AlertFunc
	version     string
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for access and audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithWorkers bounds how many logins and fetches run at once.
func WithWorkers(n int) Option {
	return func(a *API) {
		a.pool = newWorkerPool(n)
	}
}

// WithRateLimit configures the per-user failed login backoff.
func WithRateLimit(maxFailures int, window, maxLockout time.Duration) Option {
	return func(a *API) {
		a.rateLimiter = newLoginRateLimiter(maxFailures, window, maxLockout)
	}
}

// WithAlertFunc registers a callback for anomaly alerts such as a spike in
// rejected logins.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFn = fn
	}
}

func WithVersion(v string) Option {
	return func(a *API) {
		a.version = v
	}
}

// New creates a new API instance.
func New(orch *auth.Orchestrator, registry *service.Registry, opts ...Option) *API {
	a := &API{
		orch:        orch,
		registry:    registry,
		pool:        newWorkerPool(defaultWorkers),
		rateLimiter: newLoginRateLimiter(maxFailures, failureWindow, maxLockout),
		audit:       newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil))),
		version:     "dev",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.alertFn != nil {
		a.audit.metrics = newMetricsCollector(a.alertFn)
	}
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Get("/", a.Status)
	r.Get("/services", a.Services)
	r.Post("/login", a.Login)
	r.Post("/session", a.Session)
	r.Post("/student-card", a.StudentCard)
	r.Post("/student-changelog", a.StudentChangelog)
	r.Post("/student-basicinfo", a.StudentBasicInfo)

	return r
}

// Handler is the full HTTP handler: shared middleware plus the API mounted
// under /api/v1. GET / answers the status probe as well.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(a.RequestID)
	r.Use(a.AccessLog)
	r.Use(chimw.Recoverer)
	r.Use(SecurityHeaders)

	r.Get("/", a.Status)
	r.Mount("/api/v1", a.Router())
	return r
}

// RunSweeper drops stale rate-limit records every interval until ctx is
// done.
func (a *API) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.rateLimiter.sweep()
		}
	}
}
