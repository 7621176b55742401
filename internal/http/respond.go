package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tesoreria/internal/core"
	"tesoreria/internal/ledger"
	applog "tesoreria/internal/log"
	"tesoreria/internal/services"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes. Validation sentinels
// are the caller's fault (422), scope misses surface as 404 so record
// existence never leaks across ledgers.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, errMissingIdentity):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrMonthWithoutYear):
		status = http.StatusBadRequest
	case isValidationError(err):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		logs := applog.NewStructuredLogger(applog.FromContext(r.Context()))
		logs.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, r.Method,
			applog.NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
				WithCaller(r.Header.Get(headerUserID), r.Header.Get(headerUserRole)))
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrFutureDate,
		core.ErrInvalidDate,
		core.ErrMissingAccount,
		core.ErrUnknownAccount,
		core.ErrAccountTypeMismatch,
		core.ErrMissingCedula,
		core.ErrMissingNombres,
		core.ErrUnknownType,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
