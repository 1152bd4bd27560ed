package middleware

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// RequireAPIKey guards machine-to-machine endpoints (the graduation pipeline
// handoff) with a static key checked against a bcrypt hash from config. The
// plaintext key never lives in our environment, only its hash.
func RequireAPIKey(keyHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if keyHash == "" {
				logger.ErrorContext(ctx, "pipeline API key hash not configured",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "endpoint not configured")
				return
			}
			key := r.Header.Get("X-API-Key")
			if key == "" {
				logger.WarnContext(ctx, "unauthorized access - missing API key",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "missing API key")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
				logger.WarnContext(ctx, "unauthorized access - bad API key",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
