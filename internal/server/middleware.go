package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opencarbon/carbonfocus/internal/auth"
	"github.com/opencarbon/carbonfocus/internal/logging"
	"github.com/opencarbon/carbonfocus/internal/store"
)

type contextKey string

const (
	// RequestIDKey is the context key under which the request id is stored.
	RequestIDKey contextKey = "request_id"

	userKey contextKey = "user"
)

// RequestIDMiddleware tags every request with a unique id, exposed as the
// X-Request-ID response header and in the request context.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request id from context, or "" when the
// middleware is absent.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// LoggingMiddleware emits one structured log line per completed request and
// attaches a request-scoped logger to the context.
func LoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			reqLogger := logger.With().
				Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()
			ctx := logging.WithContext(r.Context(), reqLogger)

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			reqLogger.Info().
				Int("status", wrapped.status).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("request completed")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Authenticate resolves the bearer token to a user session and stores the
// user in the request context. Requests without a valid session get 401.
func (s *Server) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ExtractBearer(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		user, found, err := s.store.SessionUser(r.Context(), auth.HashToken(token))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "session lookup failed")
			return
		}
		if !found {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles gates a route on role membership. ADMIN passes every check.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := userFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !auth.HasAnyRole(user.Roles, roles) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userFrom(ctx context.Context) (*store.User, bool) {
	user, ok := ctx.Value(userKey).(*store.User)
	return user, ok
}
