package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"

	"piggybank/internal/apperr"
	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/security"
	"piggybank/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const principalContextKey ContextKey = "principal"

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	limiter     *security.RateLimiter
	clientIPs   *security.ClientIPResolver
	logger      *log.Logger
}

// NewMiddleware creates a new middleware instance. With a nil clientIPs
// resolver only the direct peer address identifies a client.
func NewMiddleware(authService *service.AuthService, limiter *security.RateLimiter, clientIPs *security.ClientIPResolver, logger *log.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		limiter:     limiter,
		clientIPs:   clientIPs,
		logger:      logger.WithComponent(log.ComponentHTTP),
	}
}

// RequestLogging assigns a request ID, puts a request-scoped logger in the
// context and logs the outcome of every request.
func (m *Middleware) RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		logger := m.logger.With(log.FieldRequestID, requestID)
		r = r.WithContext(log.NewContext(r.Context(), logger))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		level := levelForStatus(rw.statusCode)
		logger.Log(r.Context(), level, "HTTP request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, m.clientIPs.ClientIP(r),
		)
	})
}

// Recoverer turns a panic into a 500 response
func (m *Middleware) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.FromContext(r.Context()).ErrorContext(r.Context(), "panic serving request",
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, errorDetail{
					Kind:    string(apperr.KindInternal),
					Code:    CodeInternalError,
					Message: "internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests without a valid, unrevoked bearer token and
// stores the resolved principal in the request context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := security.BearerToken(r)
		if !ok {
			respondWithError(w, r, service.ErrSessionInvalid)
			return
		}

		principal, err := m.authService.Authenticate(r.Context(), token)
		if err != nil {
			respondWithError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		logger := log.FromContext(ctx).With(
			log.FieldPrincipal, string(principal.Kind),
			log.FieldFamilyID, principal.FamilyID,
		)
		next(w, r.WithContext(log.NewContext(ctx, logger)))
	}
}

// RateLimit throttles a public endpoint per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(m.clientIPs.ClientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(m.limiter.Window().Seconds())))
			writeError(w, http.StatusTooManyRequests, errorDetail{
				Kind:    string(apperr.KindRateLimited),
				Code:    CodeTooManyRequests,
				Message: "too many requests, try again later",
			})
			return
		}
		next(w, r)
	}
}

// PrincipalFromContext retrieves the authenticated principal
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(models.Principal)
	return p, ok
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

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
