package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"moneymanager/internal/core"
)

// transactionResponse is the wire shape of a single transaction.
type transactionResponse struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Division    string     `json:"division"`
	Timestamp   time.Time  `json:"timestamp"`
	CanEdit     bool       `json:"canEdit"`
}

// newTransactionResponse shapes a transaction for the wire. canEdit is
// derived from the creation time at response time, never read from the
// stored flag alone.
func newTransactionResponse(t core.Transaction, now time.Time) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Type:        string(t.Kind),
		Amount:      t.Amount,
		Description: t.Description,
		Category:    t.Category,
		Division:    string(t.Division),
		Timestamp:   t.CreatedAt,
		CanEdit:     t.EditableAt(now),
	}
}

func newTransactionListResponse(items []core.Transaction, now time.Time) []transactionResponse {
	out := make([]transactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, newTransactionResponse(t, now))
	}
	return out
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed encoding response", "error", err)
	}
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps application errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, core.ErrLocked):
		writeError(w, http.StatusForbidden, "transaction can no longer be modified")
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

var validationErrors = []error{
	core.ErrInvalidKind,
	core.ErrInvalidAmount,
	core.ErrMissingAmount,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrEmptyCategory,
	core.ErrInvalidDivision,
	core.ErrIncompleteRange,
	core.ErrInvalidDate,
}

func isValidationError(err error) bool {
	for _, sentinel := range validationErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
