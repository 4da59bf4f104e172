package http

import (
	"errors"
	"fmt"
	"net/http"

	"budgetplanner/internal/core"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/middleware/auth"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, badRequest(err), "Server error", applog.OpSave)
		return
	}

	category, rawAmount, rawDate := p.Get("category"), p.Get("amount"), p.Get("date")
	if category == "" || rawAmount == "" || rawDate == "" {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}

	amount, err := parseAmount(rawAmount)
	if err != nil {
		writeError(w, r, err, "Server error", applog.OpSave)
		return
	}
	date, err := parseDate(rawDate)
	if err != nil {
		writeError(w, r, err, "Server error", applog.OpSave)
		return
	}

	e := core.Expense{
		UserID:      userID,
		Category:    category,
		Description: p.Get("description"),
		Amount:      amount,
		Date:        date,
	}
	if err := e.Validate(); err != nil {
		writeError(w, r, err, "Server error", applog.OpSave)
		return
	}

	saved, err := s.expenses.AddExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, err, "Server error", applog.OpSave)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense recorded",
		"expense_id", saved.ID,
		"category", saved.Category,
		"amount_cents", saved.Amount.Cents)
	writeData(w, http.StatusCreated, saved)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	month := core.MonthOf(s.now().In(s.loc))
	if raw := sanitizeInput(r.URL.Query().Get("month")); raw != "" {
		parsed, err := core.ParseMonth(raw)
		if err != nil {
			writeError(w, r, err, "Server error", applog.OpRead)
			return
		}
		month = parsed
	}

	start, end := month.Bounds(s.loc)
	expenses, err := s.expenses.FindExpenses(r.Context(), userID, start, end)
	if err != nil {
		writeError(w, r, err, "Server error", applog.OpRead)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeData(w, http.StatusOK, expenses)
}

// badRequest marks body decoding failures as client errors.
func badRequest(err error) error {
	if errors.Is(err, errBodyTooLarge) {
		return err
	}
	return fmt.Errorf("%w: malformed request body", core.ErrInvalidInput)
}
