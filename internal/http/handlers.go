package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	applog "moneymanager/internal/log"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "moneymanager",
		"endpoints": []string{
			"GET /api/transactions",
			"POST /api/transactions",
			"PUT /api/transactions/{id}",
			"DELETE /api/transactions/{id}",
			"GET /api/summary",
			"GET /api/health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleTransactions dispatches the collection endpoint: GET lists with
// filters, POST creates.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTransactions(w, r)
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// An unrecognized period applies no temporal constraint. Log it so a
	// client typo is visible.
	if q.Period != "" && !q.Period.Known() {
		slog.WarnContext(r.Context(), "Unknown period ignored",
			applog.FieldPeriod, string(q.Period))
	}

	items, err := s.svc.List(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newTransactionListResponse(items, time.Now()))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTransactionRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validateCreate(); err != nil {
		writeServiceError(w, err)
		return
	}

	created, err := s.svc.Create(r.Context(), req.toTransaction())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.summaryCache.Purge()

	slog.InfoContext(r.Context(), "Transaction created",
		applog.FieldTransactionID, created.ID,
		applog.FieldDivision, string(created.Division),
		applog.FieldAmountCents, created.Amount.Cents)

	writeJSON(w, http.StatusCreated, newTransactionResponse(created, time.Now()))
}

// handleTransactionByID dispatches the item endpoint: PUT patches, DELETE
// removes. Both are refused once the edit window has closed.
func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.handleUpdateTransaction(w, r, id)
	case http.MethodDelete:
		s.handleDeleteTransaction(w, r, id)
	default:
		w.Header().Set("Allow", "PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, id string) {
	req, err := decodeTransactionRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.svc.Update(r.Context(), id, req.toPatch())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.summaryCache.Purge()

	slog.InfoContext(r.Context(), "Transaction updated",
		applog.FieldTransactionID, id)

	writeJSON(w, http.StatusOK, newTransactionResponse(updated, time.Now()))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	s.summaryCache.Purge()

	slog.InfoContext(r.Context(), "Transaction deleted",
		applog.FieldTransactionID, id)

	writeJSON(w, http.StatusOK, messageResponse{Message: "transaction deleted"})
}

// handleSummary returns aggregate totals for the matching division and
// category. Results are cached briefly per filter pair.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	division := sanitizeInput(r.URL.Query().Get("division"))
	category := sanitizeInput(r.URL.Query().Get("category"))

	// Escape the parts so a literal "|" in a filter value cannot collide
	// with the separator.
	key := url.QueryEscape(division) + "|" + url.QueryEscape(category)
	if summary, found := s.summaryCache.Get(key); found {
		slog.DebugContext(r.Context(), "Summary cache hit",
			applog.FieldDivision, division,
			applog.FieldCategory, category)
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summary, err := s.svc.Summarize(r.Context(), division, category)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.summaryCache.Set(key, summary)

	writeJSON(w, http.StatusOK, summary)
}
