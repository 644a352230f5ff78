package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/interfaces"
	"github.com/scorbettUM/dcrx-kv/internal/services/auth"
)

// authCookieName is the cookie the login handler sets and the auth
// middleware reads back on every subsequent request.
const authCookieName = "X-Auth-Token"

// allowlistedPaths bypass the auth middleware entirely.
var allowlistedPaths = map[string]bool{
	"/docs":         true,
	"/favicon.ico":  true,
	"/openapi.json": true,
	"/users/login":  true,
	"/health":       true,
	"/metrics":      true,
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// bytes written for access logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// recoveryMiddleware catches panics in downstream handlers and returns 500.
func recoveryMiddleware(logger *common.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().
						Str("panic", fmt.Sprintf("%v", rec)).
						Str("path", r.URL.Path).
						Msg("server: panic recovered in handler")
					WriteError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware adds permissive CORS headers for cross-origin clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Cookie")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// correlationIDMiddleware extracts or generates a correlation ID and
// reflects it back on the response.
func correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corrID := r.Header.Get("X-Request-ID")
		if corrID == "" {
			corrID = r.Header.Get("X-Correlation-ID")
		}
		if corrID == "" {
			corrID = uuid.New().String()[:8]
		}
		w.Header().Set("X-Correlation-ID", corrID)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs one structured line per request.
func loggingMiddleware(logger *common.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			event := logger.Debug()
			if rw.statusCode >= 500 {
				event = logger.Error()
			} else if rw.statusCode >= 400 {
				event = logger.Info()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.statusCode).
				Int("bytes", rw.bytesWritten).
				Dur("duration", time.Since(start)).
				Str("correlation_id", w.Header().Get("X-Correlation-ID")).
				Msg("http request")
		})
	}
}

// authMiddleware validates the X-Auth-Token cookie on every non-allowlisted
// path, clearing it and rejecting with 401 on any verification failure.
func authMiddleware(authSvc *auth.Service, users interfaces.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowlistedPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(authCookieName)
			if err != nil {
				rejectUnauthorized(w, "missing auth cookie")
				return
			}

			tokenString := strings.TrimPrefix(cookie.Value, "Bearer ")
			claims, err := authSvc.Verify(tokenString)
			if err != nil {
				clearAuthCookie(w)
				rejectUnauthorized(w, "invalid or expired token")
				return
			}

			account, err := users.GetByID(r.Context(), claims.Subject)
			if err != nil || account.Disabled {
				clearAuthCookie(w)
				rejectUnauthorized(w, "account not found or disabled")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

func clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// applyMiddleware wraps handler with the full middleware stack, outermost
// first: recovery, CORS, correlation ID, logging, auth.
func applyMiddleware(handler http.Handler, logger *common.Logger, authSvc *auth.Service, users interfaces.UserStore) http.Handler {
	handler = authMiddleware(authSvc, users)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = correlationIDMiddleware(handler)
	handler = corsMiddleware(handler)
	handler = recoveryMiddleware(logger)(handler)
	return handler
}
