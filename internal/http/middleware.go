package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/lesson-scheduler/internal/application"
)

type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (application.Role, error)
}

// RequireToken rejects requests without a valid bearer API token and stores
// the granted role on the request context.
func RequireToken(authenticator TokenAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="lesson-scheduler"`)
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingToken)
				return
			}

			role, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, application.ErrUnauthorized):
					w.Header().Set("WWW-Authenticate", `Bearer realm="lesson-scheduler", error="invalid_token"`)
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: "the API token is not valid"})
				default:
					responder.loggerFor(r.Context()).ErrorContext(r.Context(), "token verification failed", "error", err)
					responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Message: "an error occurred while verifying the API token"})
				}
				return
			}

			ctx := ContextWithRole(r.Context(), role)
			ctx = ContextWithLogger(ctx, responder.loggerFor(r.Context()).With("role", string(role)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireBookingRole lets a write through only for roles allowed to book.
// Requests without a role pass, which is the case when authentication is off.
func requireBookingRole(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if role, ok := RoleFromContext(r.Context()); ok && !role.CanBook() {
			newResponder(nil).handleServiceError(r.Context(), w, application.ErrUnauthorized)
			return
		}
		next(w, r)
	}
}

func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(recorder, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", recorder.status, "duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func extractBearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
