package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"moneymanager/internal/core"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 16 // 64KB

// transactionRequest is the JSON body for creating or patching a
// transaction. Pointers distinguish absent fields from zero values.
type transactionRequest struct {
	Type        *string     `json:"type"`
	Amount      *core.Money `json:"amount"`
	Description *string     `json:"description"`
	Category    *string     `json:"category"`
	Division    *string     `json:"division"`
}

// decodeTransactionRequest reads and decodes a JSON request body.
func decodeTransactionRequest(r *http.Request) (transactionRequest, error) {
	var req transactionRequest

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return req, fmt.Errorf("read request body: %w", err)
	}
	if len(body) == 0 {
		return req, fmt.Errorf("empty request body")
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("invalid JSON body: %w", err)
	}
	return req, nil
}

// validateCreate rejects a create body without an amount. The other
// required fields decode to zero values that core validation catches, but a
// zero amount is legal, so absence has to be checked on the request itself.
func (req transactionRequest) validateCreate() error {
	if req.Amount == nil {
		return core.ErrMissingAmount
	}
	return nil
}

// toTransaction builds a new transaction from a create request. Missing
// fields become zero values so core validation produces the field error.
func (req transactionRequest) toTransaction() core.Transaction {
	t := core.Transaction{}
	if req.Type != nil {
		t.Kind = core.Kind(sanitizeInput(*req.Type))
	}
	if req.Amount != nil {
		t.Amount = *req.Amount
	}
	if req.Description != nil {
		t.Description = sanitizeInput(*req.Description)
	}
	if req.Category != nil {
		t.Category = sanitizeInput(*req.Category)
	}
	if req.Division != nil {
		t.Division = core.Division(sanitizeInput(*req.Division))
	}
	return t
}

// toPatch builds a partial update from a patch request.
func (req transactionRequest) toPatch() core.Patch {
	var p core.Patch
	if req.Type != nil {
		kind := core.Kind(sanitizeInput(*req.Type))
		p.Kind = &kind
	}
	if req.Amount != nil {
		amount := *req.Amount
		p.Amount = &amount
	}
	if req.Description != nil {
		desc := sanitizeInput(*req.Description)
		p.Description = &desc
	}
	if req.Category != nil {
		cat := sanitizeInput(*req.Category)
		p.Category = &cat
	}
	if req.Division != nil {
		div := core.Division(sanitizeInput(*req.Division))
		p.Division = &div
	}
	return p
}

// parseListQuery extracts filter parameters for the transaction list.
func parseListQuery(r *http.Request) (core.Query, error) {
	values := r.URL.Query()

	q := core.Query{
		Division: sanitizeInput(values.Get("division")),
		Category: sanitizeInput(values.Get("category")),
		Period:   core.Period(sanitizeInput(values.Get("period"))),
	}

	if v := strings.TrimSpace(values.Get("startDate")); v != "" {
		start, err := parseDateParam(v)
		if err != nil {
			return core.Query{}, fmt.Errorf("startDate %q: %w", v, core.ErrInvalidDate)
		}
		q.Start = &start
	}
	if v := strings.TrimSpace(values.Get("endDate")); v != "" {
		end, err := parseDateParam(v)
		if err != nil {
			return core.Query{}, fmt.Errorf("endDate %q: %w", v, core.ErrInvalidDate)
		}
		q.End = &end
	}

	if err := q.Validate(); err != nil {
		return core.Query{}, err
	}
	return q, nil
}

// parseDateParam accepts a calendar date or a full RFC 3339 timestamp.
func parseDateParam(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
