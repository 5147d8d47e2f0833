// Package http exposes the transaction ledger as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"moneymanager/internal/cache"
	"moneymanager/internal/core"
	applog "moneymanager/internal/log"
	"moneymanager/internal/middleware/ratelimit"
)

// Service is the application surface the handlers call into.
type Service interface {
	Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
	Update(ctx context.Context, id string, patch core.Patch) (core.Transaction, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q core.Query) ([]core.Transaction, error)
	Summarize(ctx context.Context, division, category string) (core.Summary, error)
}

type Server struct {
	http.Server
	svc         Service
	rateLimiter *ratelimit.Limiter

	// Summary responses are cached per division+category pair and purged
	// wholesale on any mutation.
	summaryCache *cache.LRUCache[core.Summary]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. summaryTTL bounds how stale a cached summary may get.
func NewServer(addr string, svc Service, summaryTTL time.Duration) *Server {
	mux := http.NewServeMux()

	if summaryTTL <= 0 {
		summaryTTL = 30 * time.Second
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:              svc,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		summaryCache:     cache.NewLRUCache[core.Summary](100, summaryTTL),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/{$}", s.withCommonHeaders(s.handleIndex))
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/transactions", s.withCommonHeaders(s.handleTransactions))
	mux.HandleFunc("/api/transactions/{id}", s.withCommonHeaders(s.handleTransactionByID))
	mux.HandleFunc("/api/summary", s.withCommonHeaders(s.handleSummary))

	return s
}

// withCommonHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withCommonHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		// Mutations are rate limited per client.
		if isMutation(r.Method) && !s.rateLimiter.Allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		applySecurityHeaders(w)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds())
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// startCacheCleanup periodically drops expired summary entries.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.summaryCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
