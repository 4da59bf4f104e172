package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgetplanner/internal/core"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/middleware/auth"
	"budgetplanner/internal/middleware/ratelimit"
	"budgetplanner/internal/middleware/security"
	"budgetplanner/internal/middleware/trace"
)

// Planner is the budget planning service behind the API.
type Planner interface {
	GeneratePlan(ctx context.Context, userID string, totalBudget core.Money, requirements string) (core.BudgetPlan, error)
	CurrentPlan(ctx context.Context, userID string) (*core.BudgetPlan, error)
	History(ctx context.Context, userID string) ([]core.BudgetPlan, error)
	CompareSpending(ctx context.Context, userID, month string) (*core.Comparison, error)
	Insights(ctx context.Context, userID string) (core.InsightReport, error)
}

// ExpenseStore records and lists the expenses plans are reconciled against.
type ExpenseStore interface {
	AddExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	FindExpenses(ctx context.Context, userID string, start, end time.Time) ([]core.Expense, error)
}

// HealthChecker reports whether storage is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Options configures cross-cutting behavior of the server.
type Options struct {
	Auth                      auth.Authenticator
	GenerateRequestsPerMinute int
	Location                  *time.Location
	Logger                    *applog.Logger
}

type Server struct {
	http.Server
	planner  Planner
	expenses ExpenseStore
	health   HealthChecker
	loc      *time.Location
	now      func() time.Time

	generateLimiter *ratelimit.Limiter
	detector        *security.Detector
	tracer          *trace.Middleware
	shutdownOnce    sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, planner Planner, expenses ExpenseStore, health HealthChecker, opts Options) *Server {
	if opts.Auth == nil {
		opts.Auth = auth.Header{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = applog.Default(applog.ComponentHTTP)
	}

	s := &Server{
		planner:  planner,
		expenses: expenses,
		health:   health,
		loc:      opts.Location,
		now:      time.Now,
		detector: security.NewDetector(),
		generateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.GenerateRequestsPerMinute,
		}),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	authed := auth.Middleware(opts.Auth, authError)
	limited := s.generateLimiter.Middleware(s.rateLimitKey, rateLimited)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("POST /api/budget-planner/generate", authed(limited(http.HandlerFunc(s.handleGenerate))))
	mux.Handle("GET /api/budget-planner/current", authed(http.HandlerFunc(s.handleCurrent)))
	mux.Handle("GET /api/budget-planner/history", authed(http.HandlerFunc(s.handleHistory)))
	mux.Handle("GET /api/budget-planner/compare", authed(http.HandlerFunc(s.handleCompare)))
	mux.Handle("GET /api/budget-planner/insights", authed(http.HandlerFunc(s.handleInsights)))

	mux.Handle("POST /api/expenses", authed(http.HandlerFunc(s.handleCreateExpense)))
	mux.Handle("GET /api/expenses", authed(http.HandlerFunc(s.handleListExpenses)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Addr = addr
	s.Handler = s.tracer.Middleware(headers.Middleware(s.detector.Middleware(mux)))
	s.ReadHeaderTimeout = 10 * time.Second
	s.ReadTimeout = 30 * time.Second
	// Generation can take up to the provider timeout.
	s.WriteTimeout = 3 * time.Minute
	s.IdleTimeout = 2 * time.Minute
	return s
}

// rateLimitKey limits per user when authenticated and per client IP otherwise.
func (s *Server) rateLimitKey(r *http.Request) string {
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		return "user:" + userID
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}

// Shutdown gracefully shuts down the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.generateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
