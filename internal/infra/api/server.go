package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"contract-plan-manager/internal/infra/logging"
	"contract-plan-manager/internal/usecase"
)

// ReadinessCheck is one dependency checked by /ready.
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Options struct {
	// Auth guards /api when set.
	Auth *AuthManager
	// Limiter enables per-client rate limiting of /api when set.
	Limiter        Limiter
	RateLimit      int
	RateWindow     time.Duration
	AllowedOrigins []string
	// TrustProxy honours X-Forwarded-For / X-Real-IP. Enable only behind a
	// proxy that overwrites them.
	TrustProxy bool
	// MetricsPath exposes Prometheus metrics when non-empty.
	MetricsPath    string
	RequestTimeout time.Duration
	Checks         []ReadinessCheck
}

// Server exposes the plan, contract and change request use cases over REST.
type Server struct {
	plans     usecase.PaymentPlanUseCase
	contracts usecase.ContractUseCase
	requests  usecase.PlanChangeRequestUseCase
	opts      Options
	validate  *validator.Validate
	log       *zerolog.Logger
}

func NewServer(
	plans usecase.PaymentPlanUseCase,
	contracts usecase.ContractUseCase,
	requests usecase.PlanChangeRequestUseCase,
	opts Options,
	logger *zerolog.Logger,
) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	return &Server{
		plans:     plans,
		contracts: contracts,
		requests:  requests,
		opts:      opts,
		validate:  newValidator(),
		log:       logger,
	}
}

// Router builds the full HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	if s.opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(TraceID(s.log), RequestLog(), middleware.Recoverer, Metrics(), CORS(s.opts.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		ok(w, http.StatusOK, "OK", "")
	})
	r.Get("/ready", s.ready)
	if s.opts.MetricsPath != "" {
		r.Method(http.MethodGet, s.opts.MetricsPath, promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if s.opts.Limiter != nil {
			r.Use(RateLimit(s.opts.Limiter, s.opts.RateLimit, s.opts.RateWindow, s.log))
		}
		r.Use(middleware.Timeout(s.opts.RequestTimeout))

		if s.opts.Auth != nil {
			r.Post("/auth/login", loginHandler(s.opts.Auth, s.validate, s.log))
		}

		r.Group(func(r chi.Router) {
			if s.opts.Auth != nil {
				r.Use(s.opts.Auth.Middleware(s.log))
			}
			r.Route("/paymentplans", s.planRoutes)
			r.Route("/contracts", s.contractRoutes)
			r.Route("/planchangerequests", s.changeRequestRoutes)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status := make(map[string]string, len(s.opts.Checks))
	var failed []string
	for _, c := range s.opts.Checks {
		if err := c.Ping(ctx); err != nil {
			logging.With(r.Context(), s.log).Warn().Err(err).Str("check", c.Name).Msg("readiness check failed")
			status[c.Name] = "down"
			failed = append(failed, c.Name+" unavailable")
			continue
		}
		status[c.Name] = "up"
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, Response{Success: false, Message: "Not ready", Data: status, Errors: failed})
		return
	}
	ok(w, http.StatusOK, status, "Ready")
}

// pathUUID binds a UUID path parameter and returns it in canonical form.
func pathUUID(r *http.Request, name string) (string, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *Server) badID(w http.ResponseWriter, err error) {
	fail(w, http.StatusBadRequest, "Invalid identifier", err.Error())
}

func (s *Server) badBody(w http.ResponseWriter, msgs []string) {
	fail(w, http.StatusBadRequest, "Validation failed", msgs...)
}
