package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"coinpurse/internal/core"
	applog "coinpurse/internal/log"
	"coinpurse/internal/services"
)

type Server struct {
	http.Server
	periods      *services.PeriodService
	balances     *services.BalanceService
	institutions *services.InstitutionService
	accounts     *services.AccountService
	checkup      *services.CheckupService
	rateLimiter  *rateLimiter

	// Periods are immutable once created, so positive lookups cache well.
	periodCache *lruCache[core.Period]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, periods *services.PeriodService, balances *services.BalanceService, institutions *services.InstitutionService, accounts *services.AccountService, checkup *services.CheckupService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		periods:          periods,
		balances:         balances,
		institutions:     institutions,
		accounts:         accounts,
		checkup:          checkup,
		rateLimiter:      newRateLimiter(),
		periodCache:      newLRUCache[core.Period](200, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/period", s.withMiddleware(s.handleListPeriods))
	mux.HandleFunc("POST /api/period", s.withMiddleware(s.handleCreatePeriod))
	mux.HandleFunc("GET /api/period/for-date", s.withMiddleware(s.handleFindPeriodForDate))
	mux.HandleFunc("GET /api/period/{id}", s.withMiddleware(s.handleGetPeriod))
	mux.HandleFunc("POST /api/period/for-month", s.withMiddleware(s.handlePeriodForMonth))
	mux.HandleFunc("POST /api/period/for-date", s.withMiddleware(s.handlePeriodForDate))

	mux.HandleFunc("POST /api/balance", s.withMiddleware(s.handleUpsertBalances))
	mux.HandleFunc("POST /api/balance/for-month", s.withMiddleware(s.handleBalancesForMonth))
	mux.HandleFunc("POST /api/balance/for-date", s.withMiddleware(s.handleBalancesForDate))
	mux.HandleFunc("POST /api/balance/bulk", s.withMiddleware(s.handleBulkUpsert))
	mux.HandleFunc("GET /api/balance/period/{id}", s.withMiddleware(s.handleBalancesForPeriod))
	mux.HandleFunc("GET /api/balance/account/{id}", s.withMiddleware(s.handleBalancesForAccount))

	mux.HandleFunc("POST /api/institution", s.withMiddleware(s.handleCreateInstitution))
	mux.HandleFunc("GET /api/institution", s.withMiddleware(s.handleListInstitutions))
	mux.HandleFunc("GET /api/institution/{id}", s.withMiddleware(s.handleGetInstitution))
	mux.HandleFunc("PUT /api/institution/{id}", s.withMiddleware(s.handleRenameInstitution))
	mux.HandleFunc("DELETE /api/institution/{id}", s.withMiddleware(s.handleDeactivateInstitution))
	mux.HandleFunc("GET /api/institution/{id}/accounts", s.withMiddleware(s.handleInstitutionAccounts))

	mux.HandleFunc("POST /api/account", s.withMiddleware(s.handleCreateAccount))
	mux.HandleFunc("GET /api/account", s.withMiddleware(s.handleListAccounts))
	mux.HandleFunc("GET /api/account/{id}", s.withMiddleware(s.handleGetAccount))
	mux.HandleFunc("PUT /api/account/{id}", s.withMiddleware(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/account/{id}", s.withMiddleware(s.handleDeactivateAccount))

	mux.HandleFunc("GET /api/checkup", s.withMiddleware(s.handleCheckup))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.periodCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
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

// withMiddleware adds request logging, rate limiting, and security headers.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		// Rate limit mutating requests only
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
