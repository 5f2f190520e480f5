// Package http exposes the bookkeeping API as JSON over net/http.
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

	"contabile/internal/services"
	"contabile/internal/storage"
)

type Server struct {
	http.Server

	store        *storage.Store
	transactions *services.TransactionService
	categories   *services.CategoryService
	cards        *services.CardService
	summaries    *services.SummaryService
	imports      *services.ImportService

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, store *storage.Store,
	transactions *services.TransactionService,
	categories *services.CategoryService,
	cards *services.CardService,
	summaries *services.SummaryService,
	imports *services.ImportService) *Server {

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:        store,
		transactions: transactions,
		categories:   categories,
		cards:        cards,
		summaries:    summaries,
		imports:      imports,
		rateLimiter:  newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/categories", s.protect(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.protect(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.protect(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.protect(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/cards", s.protect(s.handleListCards))
	mux.HandleFunc("POST /api/cards", s.protect(s.handleCreateCard))
	mux.HandleFunc("PUT /api/cards/{id}", s.protect(s.handleUpdateCard))
	mux.HandleFunc("DELETE /api/cards/{id}", s.protect(s.handleDeleteCard))

	mux.HandleFunc("GET /api/transactions", s.protect(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.protect(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.protect(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.protect(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.protect(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/card-payments", s.protect(s.handleListPayments))
	mux.HandleFunc("POST /api/card-payments", s.protect(s.handleCreatePayment))
	mux.HandleFunc("DELETE /api/card-payments/{id}", s.protect(s.handleDeletePayment))

	mux.HandleFunc("GET /api/summary", s.protect(s.handleSummary))
	mux.HandleFunc("GET /api/dashboard", s.protect(s.handleDashboard))

	mux.HandleFunc("POST /api/import/transactions", s.protect(s.handleImportTransactions))
	mux.HandleFunc("POST /api/import/categories", s.protect(s.handleImportCategories))
	mux.HandleFunc("POST /api/import/sheet", s.protect(s.handleImportSheet))
	mux.HandleFunc("GET /api/export/transactions.csv", s.protect(s.handleExportTransactions))

	return s
}

// protect stacks the cross-cutting middleware: request logging,
// security headers, write rate limiting, and account resolution.
func (s *Server) protect(next ownerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		owner, err := s.resolveOwner(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r, owner)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// Shutdown stops the rate limiter sweep and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// responseWriter wraps http.ResponseWriter to capture the status code.
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

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
