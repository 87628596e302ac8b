package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/poyrazK/licenseHub/internal/core/domain"
	"github.com/poyrazK/licenseHub/internal/core/ports"
	"github.com/poyrazK/licenseHub/internal/infrastructure/metrics"
)

type contextKey string

const (
	CtxUsername contextKey = "username"
)

// AuthMiddleware rejects unauthenticated callers before any store
// operation runs. A missing token and an invalid or expired token are
// distinct error kinds: 401 and 403 respectively.
func AuthMiddleware(creds ports.Credentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Unauthorized: missing or invalid authorization header")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			principal, err := creds.Verify(token)
			if err != nil {
				if errors.Is(err, domain.ErrMissingToken) {
					writeError(w, http.StatusUnauthorized, "Unauthorized: missing bearer token")
					return
				}
				writeError(w, http.StatusForbidden, "Forbidden: invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), CtxUsername, principal.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CORSMiddleware allows the dashboard origin to call the API and the
// realtime channel from a browser.
func CORSMiddleware(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowedOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// MetricsMiddleware counts requests by route and status code. The mux
// fills in r.Pattern while routing, so reading it after ServeHTTP keeps
// the label set bounded: every /admin/decide/{id} hit shares one series.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
