package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	IssuerID      string
	InstitutionID string
}

// Context keys for authenticated caller information.
type contextKeyIssuerID struct{}
type contextKeyInstitutionID struct{}

// GetIssuerID retrieves the authenticated issuer ID from the context.
func GetIssuerID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyIssuerID{}).(string); ok {
		return id
	}
	return ""
}

// GetInstitutionID retrieves the authenticated institution ID from the context.
func GetInstitutionID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyInstitutionID{}).(string); ok {
		return id
	}
	return ""
}

// WithAuthContext injects issuer and institution identity into a context.
// Useful for handler tests that bypass the JWT middleware.
func WithAuthContext(ctx context.Context, issuerID, institutionID string) context.Context {
	ctx = context.WithValue(ctx, contextKeyIssuerID{}, issuerID)
	ctx = context.WithValue(ctx, contextKeyInstitutionID{}, institutionID)
	return ctx
}

// RequireAuth validates the bearer token and stores the caller identity in
// the request context. Issue/revoke/suspend routes sit behind this.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			ctx = WithAuthContext(ctx, claims.IssuerID, claims.InstitutionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
