package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cbodonnell/openworld-api/pkg/apierrors"
	"github.com/cbodonnell/openworld-api/pkg/api/response"
	authproviders "github.com/cbodonnell/openworld-api/pkg/auth/providers"
	"github.com/cbodonnell/openworld-api/pkg/log"
)

type ContextKey int

const (
	// CallerContextKey is the key used to store the resolved caller id in the
	// request context
	CallerContextKey ContextKey = iota
)

// RequestLogging assigns a request id, times the request, attaches the
// X-Request-ID and X-Response-Time headers, and emits one log line per
// request. It wraps the whole chain, so it runs on error paths too.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		start := time.Now()
		ctx := response.WithRequestInfo(r.Context(), requestID, start)

		w.Header().Set("X-Request-ID", requestID)
		rec := &timingResponseWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
			start:          start,
		}
		next.ServeHTTP(rec, r.WithContext(ctx))

		durationMS := response.RoundMS(time.Since(start))
		log.Info("request_id=%s method=%s path=%s status=%d duration_ms=%.2f",
			requestID, r.Method, r.URL.Path, rec.status, durationMS)
	})
}

// timingResponseWriter stamps X-Response-Time just before the status line is
// written, since headers cannot change afterwards.
type timingResponseWriter struct {
	http.ResponseWriter
	status      int
	start       time.Time
	wroteHeader bool
}

func (rec *timingResponseWriter) WriteHeader(status int) {
	if rec.wroteHeader {
		return
	}
	rec.wroteHeader = true
	rec.status = status
	rec.Header().Set("X-Response-Time", fmt.Sprintf("%.2fms", response.RoundMS(time.Since(rec.start))))
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *timingResponseWriter) Write(b []byte) (int, error) {
	if !rec.wroteHeader {
		rec.WriteHeader(http.StatusOK)
	}
	return rec.ResponseWriter.Write(b)
}

// CORS restricts cross-origin access to the configured origins and answers
// preflight requests before routing.
func CORS(origins []string) func(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, origin := range origins {
		allowed[origin] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowed["*"] || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, X-Response-Time")
			}
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewAuthMiddleware resolves the caller from a bearer token. Every failure
// mode of the identity service collapses to Unauthorized for the client; a
// raw 500 never leaks from this layer.
func NewAuthMiddleware(authProvider authproviders.AuthProvider, translator *response.Translator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearerToken, err := parseBearerToken(r)
			if err != nil {
				translator.Error(w, r, apierrors.NewUnauthorized(err.Error()))
				return
			}

			claims, err := authProvider.VerifyToken(r.Context(), bearerToken)
			if err != nil {
				log.Error("failed to verify ID token: %v", err)
				translator.Error(w, r, apierrors.NewUnauthorized("Invalid or expired credentials"))
				return
			}

			ctx := context.WithValue(r.Context(), CallerContextKey, claims.UID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerID returns the caller id resolved by the auth middleware.
func CallerID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(CallerContextKey).(string)
	return uid, ok
}

// parseBearerToken parses the bearer token from the Authorization header
func parseBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	return parts[1], nil
}
