package http

import (
	"net/http"

	applog "budgetplanner/internal/log"
	"budgetplanner/internal/middleware/auth"
)

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, badRequest(err), "Failed to generate budget plan", applog.OpGenerate)
		return
	}

	rawBudget, requirements := p.Get("totalBudget"), p.Get("requirements")
	if rawBudget == "" || rawBudget == "0" || requirements == "" {
		writeMessage(w, http.StatusBadRequest, "Total budget and requirements are required")
		return
	}
	totalBudget, err := parseAmount(rawBudget)
	if err != nil {
		writeError(w, r, err, "Failed to generate budget plan", applog.OpGenerate)
		return
	}

	plan, err := s.planner.GeneratePlan(r.Context(), userID, totalBudget, requirements)
	if err != nil {
		writeError(w, r, err, "Failed to generate budget plan", applog.OpGenerate)
		return
	}
	writeData(w, http.StatusOK, plan)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	plan, err := s.planner.CurrentPlan(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, "Failed to get budget plan", applog.OpRead)
		return
	}
	writeData(w, http.StatusOK, plan)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	history, err := s.planner.History(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, "Failed to get budget plan history", applog.OpRead)
		return
	}
	writeData(w, http.StatusOK, history)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	comparison, err := s.planner.CompareSpending(r.Context(), userID, sanitizeInput(r.URL.Query().Get("month")))
	if err != nil {
		writeError(w, r, err, "Failed to compare spending with budget", applog.OpCompare)
		return
	}
	writeData(w, http.StatusOK, comparison)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	report, err := s.planner.Insights(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, "Failed to get budget insights", applog.OpInsights)
		return
	}
	writeData(w, http.StatusOK, report)
}
