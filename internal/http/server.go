package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

// Server exposes the ledger as a JSON API over net/http.
type Server struct {
	http.Server
	storage     *storage.Repository
	ledger      *services.LedgerService
	statements  *services.StatementService
	rateLimiter *rateLimiter

	// cached overviews keyed by family and target month
	overviewCache *cache.TTLCache[core.Overview]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, repo *storage.Repository, ledger *services.LedgerService, statements *services.StatementService, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		storage:          repo,
		ledger:           ledger,
		statements:       statements,
		rateLimiter:      newRateLimiter(),
		overviewCache:    cache.New[core.Overview](100, cacheTTL),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/overview", s.withSecurityHeaders(s.handleOverview))

	mux.HandleFunc("GET /api/accounts", s.withSecurityHeaders(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.withSecurityHeaders(s.handleCreateAccount))
	mux.HandleFunc("GET /api/cards", s.withSecurityHeaders(s.handleListCards))
	mux.HandleFunc("POST /api/cards", s.withSecurityHeaders(s.handleCreateCard))
	mux.HandleFunc("GET /api/categories", s.withSecurityHeaders(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.withSecurityHeaders(s.handleCreateCategory))

	mux.HandleFunc("GET /api/transactions", s.withSecurityHeaders(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withSecurityHeaders(s.handleCreateTransaction))
	mux.HandleFunc("POST /api/transactions/{id}/reverse", s.withSecurityHeaders(s.handleReverseTransaction))
	mux.HandleFunc("POST /api/transactions/{id}/pay", s.withSecurityHeaders(s.handlePayTransaction))
	mux.HandleFunc("POST /api/transfers", s.withSecurityHeaders(s.handleCreateTransfer))

	mux.HandleFunc("POST /api/cards/{id}/statements/file", s.withSecurityHeaders(s.handleFileCharges))
	mux.HandleFunc("GET /api/statements", s.withSecurityHeaders(s.handleListStatements))
	mux.HandleFunc("POST /api/statements/{id}/close", s.withSecurityHeaders(s.handleCloseStatement))
	mux.HandleFunc("POST /api/statements/{id}/pay", s.withSecurityHeaders(s.handlePayStatement))

	return s
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
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
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit writes only
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

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

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.overviewCache.CleanExpired(); cleaned > 0 {
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
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) overviewCacheKey(familyID string, target core.Date) string {
	return familyID + ":" + strconv.Itoa(target.Year()) + "-" + strconv.Itoa(target.Month())
}

// invalidateFamily drops every cached overview of one family. Called
// after any write that can change a balance.
func (s *Server) invalidateFamily(familyID string) {
	s.overviewCache.DeletePrefix(familyID + ":")
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database unavailable"})
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
