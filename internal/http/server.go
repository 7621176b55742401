// Package http hosts the JSON API over the ledger services. Authentication
// lives in the external identity layer; this server trusts the identity
// headers the proxy injects and only scopes data by them.
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

	applog "tesoreria/internal/log"
)

type Server struct {
	http.Server
	ledger      *LedgerAPI
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// payerCache is owned by the API; the server only runs its eviction.
	payerCache *lruCache[string]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, api *LedgerAPI) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:           api,
		rateLimiter:      newRateLimiter(),
		metrics:          &securityMetrics{},
		payerCache:       api.payerCache,
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/transactions", s.guard(api.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.guard(api.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.guard(api.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.guard(api.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.guard(api.handleDeleteTransaction))

	mux.HandleFunc("GET /api/accounts", s.guard(api.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.guard(api.handleCreateAccount))

	mux.HandleFunc("GET /api/dashboard", s.guard(api.handleDashboard))
	mux.HandleFunc("GET /api/profile", s.guard(api.handleGetProfile))
	mux.HandleFunc("GET /api/payers", s.guard(api.handleLookupPayer))
	mux.HandleFunc("GET /api/reports", s.guard(api.handleGenerateReport))

	return s
}

// guard wraps a handler with client IP extraction, request logging, rate
// limiting on mutations, and the response security headers.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		lg := applog.FromContext(ctx).With(applog.FieldRequestID, requestID)
		logs := applog.NewStructuredLogger(lg)
		logs.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			lg.WarnContext(ctx, "Suspicious request pattern",
				applog.FieldClientIP, clientIP, applog.FieldPath, r.URL.String())
		}

		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			lg.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP, applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		logs.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// startCacheCleanup evicts expired payer entries in the background.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.payerCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "payer_entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type contextKey string

const requestIDKey contextKey = "request_id"

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
