package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/qtrack/internal/domain/valueobject"
	metrics "github.com/dreschagin/qtrack/internal/infrastructure/observability/prometheus"
	"github.com/dreschagin/qtrack/internal/interfaces/http/handler"
	"github.com/dreschagin/qtrack/internal/interfaces/http/middleware"
	"github.com/dreschagin/qtrack/pkg/config"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// ReadinessCheck - проверка зависимости для /readyz
type ReadinessCheck func(ctx context.Context) error

// Handlers - все HTTP handlers приложения
type Handlers struct {
	Quality     *handler.QualityHandler
	Tickets     *handler.TicketHandler
	Comments    *handler.CommentHandler
	Attachments *handler.AttachmentHandler
	TestCases   *handler.TestCaseHandler
	TestSuites  *handler.TestSuiteHandler
	Users       *handler.UserHandler
	Activity    *handler.ActivityHandler
	Analytics   *handler.AnalyticsHandler
	WebSocket   *handler.WebSocketHandler
}

// Options - инфраструктура вокруг handlers
type Options struct {
	Security    config.SecurityConfig
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Users       middleware.UserLookup
	RateLimiter *middleware.IPRateLimiter
	Readiness   map[string]ReadinessCheck
}

// Router настраивает маршруты приложения
type Router struct {
	handlers Handlers
	opts     Options
	logger   *logger.Logger
}

// NewRouter создает новый router
func NewRouter(handlers Handlers, opts Options, logger *logger.Logger) *Router {
	return &Router{
		handlers: handlers,
		opts:     opts,
		logger:   logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(rt.logger))
	r.Use(chimw.Recoverer)
	if rt.opts.Metrics != nil {
		r.Use(rt.opts.Metrics.Middleware)
	}
	if rt.opts.RateLimiter != nil {
		r.Use(middleware.RateLimit(rt.opts.RateLimiter, rt.failureCounter(false)))
	}
	r.Use(middleware.Compression("/metrics"))

	// Probes и /metrics без авторизации
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", rt.readyz)
	if rt.opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(rt.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	authFailures := rt.failureCounter(true)
	auth := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.opts.Security.AuthEnabled,
		BearerToken: rt.opts.Security.AuthToken,
		Failures:    authFailures,
	}, rt.logger)

	if rt.handlers.WebSocket != nil {
		r.With(auth).Get("/ws", rt.handlers.WebSocket.HandleConnection)
	}

	h := rt.handlers
	perm := func(p valueobject.Permission) func(http.Handler) http.Handler {
		return middleware.RequirePermission(p, authFailures)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(auth)
		if rt.opts.Users != nil {
			api.Use(middleware.Identify(rt.opts.Users, authFailures, rt.logger))
		}

		api.Route("/quality", func(q chi.Router) {
			q.Get("/gates", h.Quality.GetGates)
			q.With(perm(valueobject.PermQualityGatesManage)).Put("/gates", h.Quality.UpdateGateCompat)
			q.Get("/gates/{id}", h.Quality.GetGate)
			q.With(perm(valueobject.PermQualityGatesManage)).Put("/gates/{id}", h.Quality.UpdateGate)

			q.Get("/metrics", h.Quality.LatestMetrics)
			q.Get("/metrics/history", h.Quality.MetricsHistory)
			q.With(perm(valueobject.PermQualityGatesManage)).Post("/metrics", h.Quality.RecordMetrics)

			q.Get("/runner", h.Quality.RunnerStatus)
			q.With(perm(valueobject.PermQualityGatesManage)).Post("/runner/run", h.Quality.RunNow)
		})

		api.Route("/tickets", func(t chi.Router) {
			t.Get("/", h.Tickets.List)
			t.With(perm(valueobject.PermTicketsCreate)).Post("/", h.Tickets.Create)
			t.Get("/{id}", h.Tickets.Get)
			t.With(perm(valueobject.PermTicketsUpdate)).Put("/{id}", h.Tickets.Update)
			t.With(perm(valueobject.PermTicketsDelete)).Delete("/{id}", h.Tickets.Delete)

			t.Get("/{id}/comments", h.Comments.ListByTicket)
			t.With(perm(valueobject.PermCommentsCreate)).Post("/{id}/comments", h.Comments.Create)

			if h.Attachments != nil {
				t.Get("/{id}/attachments", h.Attachments.List)
				t.With(perm(valueobject.PermTicketsUpdate)).Post("/{id}/attachments", h.Attachments.Upload)
			}
		})

		api.Route("/comments", func(c chi.Router) {
			c.Get("/", h.Comments.ListAll)
			c.With(perm(valueobject.PermCommentsCreate)).Put("/{id}", h.Comments.Update)
			c.With(perm(valueobject.PermCommentsCreate)).Delete("/{id}", h.Comments.Delete)
		})

		api.Route("/test-cases", func(tc chi.Router) {
			tc.Get("/", h.TestCases.List)
			tc.With(perm(valueobject.PermTestCasesCreate)).Post("/", h.TestCases.Create)
			tc.Get("/{id}", h.TestCases.Get)
			tc.With(perm(valueobject.PermTestCasesUpdate)).Put("/{id}", h.TestCases.Update)
			tc.With(perm(valueobject.PermTestCasesExecute)).Post("/{id}/execute", h.TestCases.Execute)
		})

		api.Route("/test-suites", func(ts chi.Router) {
			ts.Get("/", h.TestSuites.List)
			ts.With(perm(valueobject.PermTestSuitesCreate)).Post("/", h.TestSuites.Create)
			ts.Get("/{id}", h.TestSuites.Get)
			ts.With(perm(valueobject.PermTestSuitesManage)).Put("/{id}", h.TestSuites.Update)
			ts.With(perm(valueobject.PermTestSuitesManage)).Delete("/{id}", h.TestSuites.Delete)
			ts.With(perm(valueobject.PermTestSuitesExecute)).Post("/{id}/execute", h.TestSuites.Execute)
		})

		api.Route("/users", func(u chi.Router) {
			u.Get("/", h.Users.List)
			u.Get("/me", h.Users.Me)
			u.With(perm(valueobject.PermUsersManage)).Post("/", h.Users.Create)
			u.Get("/{id}", h.Users.Get)
			u.With(perm(valueobject.PermUsersManage)).Put("/{id}", h.Users.Update)
			u.With(perm(valueobject.PermUsersManage)).Post("/{id}/activate", h.Users.Activate)
			u.With(perm(valueobject.PermUsersManage)).Post("/{id}/deactivate", h.Users.Deactivate)
		})

		api.Get("/activity", h.Activity.List)
		api.With(perm(valueobject.PermAnalyticsView)).Get("/analytics", h.Analytics.Get)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Not found", "type": "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	})

	return r
}

// readyz проверяет все зависимости; любая ошибка дает 503
func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range rt.opts.Readiness {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		rt.logger.Warn("Readiness check failed", "checks", failed)
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"failed": failed,
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (rt *Router) failureCounter(auth bool) prometheus.Counter {
	if rt.opts.Metrics == nil {
		return nil
	}
	if auth {
		return rt.opts.Metrics.AuthFailures
	}
	return rt.opts.Metrics.RateLimitDropped
}
