package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"budgetplanner/internal/ai"
	"budgetplanner/internal/cache"
	"budgetplanner/internal/core"
	"budgetplanner/internal/middleware/auth"
	"budgetplanner/internal/planner"
	"budgetplanner/internal/storage/memory"
)

var fixedNow = time.Date(2024, time.May, 20, 10, 0, 0, 0, time.UTC)

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	repo := memory.New()
	store := planner.NewPlanStore(repo, cache.NewLRUCache[core.BudgetPlan](16, time.Minute))
	svc := planner.NewService(repo, repo, store, ai.Unavailable{}, nil).
		WithClock(func() time.Time { return fixedNow })

	srv := NewServer(":0", svc, repo, repo, Options{GenerateRequestsPerMinute: 2})
	srv.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, repo
}

func do(t *testing.T, h http.Handler, method, target, user, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" && strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	} else if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if user != "" {
		req.Header.Set(auth.UserIDHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s %s: %v\n%s", method, target, err, rec.Body.String())
		}
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec, _ := do(t, srv.Handler, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
	}
}

func TestBudgetRoutesRequireAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, resp := do(t, srv.Handler, http.MethodGet, "/api/budget-planner/current", "", "")
	if rec.Code != http.StatusUnauthorized || resp.Success {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGenerateAndReadPlan(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler

	rec, resp := do(t, h, http.MethodGet, "/api/budget-planner/current", "alice", "")
	if rec.Code != http.StatusOK || string(resp.Data) != "null" {
		t.Fatalf("current before generate: status=%d data=%s", rec.Code, resp.Data)
	}

	rec, resp = do(t, h, http.MethodPost, "/api/budget-planner/generate", "alice",
		`{"totalBudget": "5000", "requirements": "rent and groceries"}`)
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("generate: status=%d body=%s", rec.Code, rec.Body.String())
	}
	var plan core.BudgetPlan
	if err := json.Unmarshal(resp.Data, &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	// The generator is unavailable, so the fixed fallback plan is served.
	if plan.Source != core.SourceFallback || len(plan.Categories) != 7 || plan.TotalBudget != core.NewMoney(5000) {
		t.Fatalf("unexpected plan %+v", plan)
	}

	rec, resp = do(t, h, http.MethodGet, "/api/budget-planner/current", "alice", "")
	var current core.BudgetPlan
	if err := json.Unmarshal(resp.Data, &current); err != nil || current.ID != plan.ID {
		t.Fatalf("current=%s err=%v", resp.Data, err)
	}

	rec, resp = do(t, h, http.MethodGet, "/api/budget-planner/history", "alice", "")
	var history []core.BudgetPlan
	if err := json.Unmarshal(resp.Data, &history); err != nil || len(history) != 1 {
		t.Fatalf("history=%s err=%v", resp.Data, err)
	}

	rec, resp = do(t, h, http.MethodGet, "/api/budget-planner/history", "bob", "")
	if string(resp.Data) != "[]" {
		t.Fatalf("history of other user = %s", resp.Data)
	}
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"missing budget", `{"requirements": "x"}`, http.StatusBadRequest, "Total budget and requirements are required"},
		{"zero budget", `{"totalBudget": 0, "requirements": "x"}`, http.StatusBadRequest, "Total budget and requirements are required"},
		{"blank requirements", `{"totalBudget": 100, "requirements": "   "}`, http.StatusBadRequest, "Total budget and requirements are required"},
		{"negative budget", `{"totalBudget": -5, "requirements": "x"}`, http.StatusBadRequest, "invalid amount"},
		{"non numeric budget", `{"totalBudget": "lots", "requirements": "x"}`, http.StatusBadRequest, "invalid amount"},
		{"malformed json", `{"totalBudget": `, http.StatusBadRequest, "malformed request body"},
		{"form body", `totalBudget=1200&requirements=rent`, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, repo := newTestServer(t)
			rec, resp := do(t, srv.Handler, http.MethodPost, "/api/budget-planner/generate", "alice", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", rec.Code, tt.status, rec.Body.String())
			}
			if tt.message != "" && !strings.Contains(resp.Message, tt.message) {
				t.Errorf("message=%q want %q", resp.Message, tt.message)
			}
			if tt.status != http.StatusOK {
				if h, _ := repo.PlanHistory(context.Background(), "alice"); len(h) != 0 {
					t.Error("rejected request must not persist a plan")
				}
			}
		})
	}
}

func TestGenerateRateLimited(t *testing.T) {
	srv, _ := newTestServer(t)
	body := `{"totalBudget": 100, "requirements": "x"}`
	for i := 0; i < 2; i++ {
		if rec, _ := do(t, srv.Handler, http.MethodPost, "/api/budget-planner/generate", "alice", body); rec.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rec.Code)
		}
	}
	rec, resp := do(t, srv.Handler, http.MethodPost, "/api/budget-planner/generate", "alice", body)
	if rec.Code != http.StatusTooManyRequests || resp.Success {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec, _ := do(t, srv.Handler, http.MethodPost, "/api/budget-planner/generate", "bob", body); rec.Code != http.StatusOK {
		t.Fatalf("other user limited: %d", rec.Code)
	}
}

func TestCompareAndInsights(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler

	rec, resp := do(t, h, http.MethodGet, "/api/budget-planner/insights", "alice", "")
	if rec.Code != http.StatusOK || !strings.Contains(string(resp.Data), `"insights":[]`) || strings.Contains(string(resp.Data), "summary") {
		t.Fatalf("insights without plan: %s", resp.Data)
	}

	do(t, h, http.MethodPost, "/api/budget-planner/generate", "alice", `{"totalBudget": 5000, "requirements": "x"}`)
	rec, _ = do(t, h, http.MethodPost, "/api/expenses", "alice", `{"category": " food & dining ", "amount": 1200, "date": "2024-05-03"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add expense status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec, resp = do(t, h, http.MethodGet, "/api/budget-planner/compare?month=2024-05", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("compare status=%d", rec.Code)
	}
	var c core.Comparison
	if err := json.Unmarshal(resp.Data, &c); err != nil {
		t.Fatalf("decode comparison: %v", err)
	}
	if c.TotalActual != core.NewMoney(1200) || c.Month.String() != "2024-05" {
		t.Fatalf("comparison=%+v", c)
	}

	rec, resp = do(t, h, http.MethodGet, "/api/budget-planner/compare?month=May", "alice", "")
	if rec.Code != http.StatusBadRequest || resp.Success {
		t.Fatalf("bad month status=%d", rec.Code)
	}

	rec, resp = do(t, h, http.MethodGet, "/api/budget-planner/insights", "alice", "")
	var report core.InsightReport
	if err := json.Unmarshal(resp.Data, &report); err != nil || report.Summary == nil {
		t.Fatalf("insights=%s err=%v", resp.Data, err)
	}
	if report.Summary.TotalActual != core.NewMoney(1200) {
		t.Errorf("summary=%+v", report.Summary)
	}
}

func TestExpenses(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler

	rec, resp := do(t, h, http.MethodPost, "/api/expenses", "alice", `{"category": "Food"}`)
	if rec.Code != http.StatusBadRequest || resp.Message != "All fields are required" {
		t.Fatalf("status=%d message=%q", rec.Code, resp.Message)
	}
	rec, _ = do(t, h, http.MethodPost, "/api/expenses", "alice", `{"category": "Food", "amount": -3, "date": "2024-05-01"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative amount status=%d", rec.Code)
	}
	rec, _ = do(t, h, http.MethodPost, "/api/expenses", "alice", `{"category": "Food", "amount": 3, "date": "yesterday"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status=%d", rec.Code)
	}

	for day := 1; day <= 2; day++ {
		body := fmt.Sprintf("category=Food&amount=10.50&date=2024-05-0%d&description=lunch", day)
		if rec, _ := do(t, h, http.MethodPost, "/api/expenses", "alice", body); rec.Code != http.StatusCreated {
			t.Fatalf("form create status=%d", rec.Code)
		}
	}
	do(t, h, http.MethodPost, "/api/expenses", "alice", `{"category": "Rent", "amount": 900, "date": "2024-04-28"}`)

	rec, resp = do(t, h, http.MethodGet, "/api/expenses", "alice", "")
	var may []core.Expense
	if err := json.Unmarshal(resp.Data, &may); err != nil || len(may) != 2 {
		t.Fatalf("current month expenses=%s err=%v", resp.Data, err)
	}
	if may[0].Amount != (core.Money{Cents: 1050}) {
		t.Errorf("amount=%v", may[0].Amount)
	}

	rec, resp = do(t, h, http.MethodGet, "/api/expenses?month=2024-04", "alice", "")
	var april []core.Expense
	if err := json.Unmarshal(resp.Data, &april); err != nil || len(april) != 1 {
		t.Fatalf("april expenses=%s err=%v", resp.Data, err)
	}

	rec, resp = do(t, h, http.MethodGet, "/api/expenses?month=2024-01", "bob", "")
	if string(resp.Data) != "[]" {
		t.Fatalf("empty list = %s", resp.Data)
	}
}

type failingPlanner struct{ err error }

func (f failingPlanner) GeneratePlan(context.Context, string, core.Money, string) (core.BudgetPlan, error) {
	return core.BudgetPlan{}, f.err
}
func (f failingPlanner) CurrentPlan(context.Context, string) (*core.BudgetPlan, error) {
	return nil, f.err
}
func (f failingPlanner) History(context.Context, string) ([]core.BudgetPlan, error) { return nil, f.err }
func (f failingPlanner) CompareSpending(context.Context, string, string) (*core.Comparison, error) {
	return nil, f.err
}
func (f failingPlanner) Insights(context.Context, string) (core.InsightReport, error) {
	return core.InsightReport{}, f.err
}

type downStore struct{ *memory.Store }

func (downStore) Ping(context.Context) error { return errors.New("database is locked") }

func TestInternalErrorsUseFixedMessages(t *testing.T) {
	cause := fmt.Errorf("%w: sqlite: disk I/O error", core.ErrPersistence)
	repo := memory.New()
	srv := NewServer(":0", failingPlanner{err: cause}, repo, downStore{repo}, Options{})
	defer srv.Shutdown(context.Background())

	tests := []struct {
		method, path, body, message string
	}{
		{http.MethodPost, "/api/budget-planner/generate", `{"totalBudget": 10, "requirements": "x"}`, "Failed to generate budget plan"},
		{http.MethodGet, "/api/budget-planner/current", "", "Failed to get budget plan"},
		{http.MethodGet, "/api/budget-planner/history", "", "Failed to get budget plan history"},
		{http.MethodGet, "/api/budget-planner/compare", "", "Failed to compare spending with budget"},
		{http.MethodGet, "/api/budget-planner/insights", "", "Failed to get budget insights"},
	}
	for _, tt := range tests {
		rec, resp := do(t, srv.Handler, tt.method, tt.path, "alice", tt.body)
		if rec.Code != http.StatusInternalServerError || resp.Message != tt.message {
			t.Errorf("%s: status=%d message=%q", tt.path, rec.Code, resp.Message)
		}
		if strings.Contains(rec.Body.String(), "disk I/O") {
			t.Errorf("%s leaks the cause: %s", tt.path, rec.Body.String())
		}
	}

	if rec, _ := do(t, srv.Handler, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status=%d", rec.Code)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, _ := do(t, srv.Handler, http.MethodGet, "/api/budget-planner/current", "alice", "")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("headers=%v", rec.Header())
	}

	rec, _ = do(t, srv.Handler, http.MethodGet, "/.env", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("probe status=%d", rec.Code)
	}
}
