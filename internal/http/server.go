package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"famfin/internal/core"
	applog "famfin/internal/log"
	"famfin/internal/middleware/ratelimit"
	"famfin/internal/middleware/security"
	"famfin/internal/middleware/trace"
	"famfin/internal/services"
)

// Services are the application services behind the API.
type Services struct {
	Authorizer *services.Authorizer
	Agency     *services.AgencyService
	Income     *services.IncomeService
	Cycles     *services.PaymentCyclesService
	Projected  *services.ProjectedExpenseService
	Savings    *services.SavingsGoalService
	Budgets    *services.CategoryBudgetService
	Dashboard  *services.DashboardService
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the HTTP settings of the API server.
type Config struct {
	Addr           string
	JWTSecret      string
	JWTIssuer      string
	RateLimit      ratelimit.Config
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Logger         *applog.Logger
}

type Server struct {
	http.Server
	svc      Services
	ready    Pinger
	verifier *TokenVerifier
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a server ready to listen.
func NewServer(cfg Config, svc Services, ready Pinger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	ips, err := security.NewIPExtractor(cfg.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}

	s := &Server{
		svc:      svc,
		ready:    ready,
		verifier: NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		limiter:  ratelimit.NewLimiter(cfg.RateLimit),
		tracer:   trace.NewMiddleware(logger, ips.ClientIP),
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, &core.Error{Kind: core.KindNotFound, Message: "no such route"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NewResponse().Status(http.StatusMethodNotAllowed).
			JSON(errorBody{Error: errorDetail{Kind: core.KindInvalidInput, Message: "method not allowed"}}).
			Write(w)
	})
	r.Use(applog.Middleware(logger), s.tracer.Middleware, security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware, recoverPanics)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.limiter.Middleware(ips.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		NewResponse().Status(http.StatusTooManyRequests).
			JSON(errorBody{Error: errorDetail{Kind: "rate_limited", Message: "rate limit exceeded"}}).
			Write(w)
	}), s.verifier.Middleware)
	s.registerRoutes(api)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) registerRoutes(api *mux.Router) {
	api.HandleFunc("/agency/snapshots", s.handleCalculateSnapshot).Methods(http.MethodPost)
	api.HandleFunc("/agency/snapshots", s.handleListSnapshots).Methods(http.MethodGet)
	api.HandleFunc("/agency/snapshots/latest", s.handleLatestSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/agency/snapshots/{date}", s.handleGetSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)

	api.HandleFunc("/income-streams/{id:[0-9]+}/projection", s.handleIncomeProjection).Methods(http.MethodGet)
	api.HandleFunc("/cards/{id:[0-9]+}/upcoming-cycle", s.handleUpcomingCycle).Methods(http.MethodGet)
	api.HandleFunc("/payment-cycles", s.handlePaymentCycles).Methods(http.MethodGet)
	api.HandleFunc("/payment-cycles/{id:[0-9]+}/payment", s.handleRecordPayment).Methods(http.MethodPost)

	api.HandleFunc("/projected-expenses", s.handleListProjected).Methods(http.MethodGet)
	api.HandleFunc("/projected-expenses", s.handleCreateProjected).Methods(http.MethodPost)
	api.HandleFunc("/projected-expenses/{id:[0-9]+}", s.handleGetProjected).Methods(http.MethodGet)
	api.HandleFunc("/projected-expenses/{id:[0-9]+}", s.handleUpdateProjected).Methods(http.MethodPatch)
	api.HandleFunc("/projected-expenses/{id:[0-9]+}", s.handleDeleteProjected).Methods(http.MethodDelete)
	api.HandleFunc("/projected-expenses/{id:[0-9]+}/transition", s.handleTransitionProjected).Methods(http.MethodPost)

	api.HandleFunc("/savings-goals", s.handleListGoals).Methods(http.MethodGet)
	api.HandleFunc("/savings-goals", s.handleCreateGoal).Methods(http.MethodPost)
	api.HandleFunc("/savings-goals/outstanding", s.handleOutstandingCommitments).Methods(http.MethodGet)
	api.HandleFunc("/savings-goals/{id:[0-9]+}", s.handleGetGoal).Methods(http.MethodGet)
	api.HandleFunc("/savings-goals/{id:[0-9]+}", s.handleUpdateGoal).Methods(http.MethodPatch)
	api.HandleFunc("/savings-goals/{id:[0-9]+}/complete", s.handleCompleteGoal).Methods(http.MethodPost)
	api.HandleFunc("/savings-goals/{id:[0-9]+}/abandon", s.handleAbandonGoal).Methods(http.MethodPost)
	api.HandleFunc("/savings-goals/{id:[0-9]+}/contributions", s.handleListContributions).Methods(http.MethodGet)
	api.HandleFunc("/savings-goals/{id:[0-9]+}/contributions", s.handleAddContribution).Methods(http.MethodPost)
	api.HandleFunc("/savings-goals/{id:[0-9]+}/contributions/{contributionId:[0-9]+}", s.handleDeleteContribution).Methods(http.MethodDelete)

	api.HandleFunc("/category-budgets", s.handleListBudgets).Methods(http.MethodGet)
	api.HandleFunc("/category-budgets", s.handleCreateBudget).Methods(http.MethodPost)
	api.HandleFunc("/category-budgets/evaluations", s.handleEvaluateAllBudgets).Methods(http.MethodGet)
	api.HandleFunc("/category-budgets/{id:[0-9]+}", s.handleUpdateBudget).Methods(http.MethodPatch)
	api.HandleFunc("/category-budgets/{id:[0-9]+}/evaluation", s.handleEvaluateBudget).Methods(http.MethodGet)
}

// Shutdown stops accepting requests, waits for in-flight ones and stops the
// rate limiter sweep.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// target resolves the user a request acts on: the caller, or the userId
// query parameter when an admin asks for it.
func (s *Server) target(r *http.Request) (int64, error) {
	requested, err := queryUserID(r)
	if err != nil {
		return 0, err
	}
	return s.resolve(r, requested)
}

func (s *Server) resolve(r *http.Request, requested int64) (int64, error) {
	caller, ok := core.CallerFrom(r.Context())
	if !ok {
		return 0, core.Forbidden("no authenticated caller")
	}
	return s.svc.Authorizer.ResolveTarget(r.Context(), caller, requested)
}

func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				writeError(w, r, core.Fatal("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
