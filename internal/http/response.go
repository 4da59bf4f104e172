package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"budgetplanner/internal/core"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/middleware/auth"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// dataEnvelope always carries the data key so "no plan" renders as null.
type dataEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, dataEnvelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// writeError maps err onto a status. Internal failures get the fixed
// message of the operation; the cause is logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error, internalMessage, op string) {
	status := statusFor(err)
	message := internalMessage
	if status != http.StatusInternalServerError {
		message = err.Error()
	}

	logger := applog.FromContext(r.Context()).WithOperation(op)
	if status >= 500 {
		logger.ErrorContext(r.Context(), internalMessage,
			applog.NewFields().WithError(err, errorType(err)).ToSlice()...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			applog.FieldStatusCode, status,
			applog.FieldError, err.Error())
	}
	writeMessage(w, status, message)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func errorType(err error) string {
	if errors.Is(err, core.ErrPersistence) {
		return applog.ErrorTypeDatabase
	}
	return applog.ErrorTypeInternal
}

// authError writes the 401 for the auth middleware.
func authError(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, auth.ErrMissingToken) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="budgetplanner"`)
		writeMessage(w, http.StatusUnauthorized, "Not authorized, no token")
		return
	}
	writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
}

func rateLimited(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusTooManyRequests, "Too many plan requests. Please try again later.")
}
