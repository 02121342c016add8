package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/elninowatch/elninowatch/internal/api/models"
	"github.com/elninowatch/elninowatch/internal/auth"
)

// TokenValidator validates a bearer token and requires a role.
// *auth.JWTService implements it.
type TokenValidator interface {
	ValidateRole(token, role string) (*auth.Claims, error)
}

type subjectKey struct{}

// RequireRole authenticates the bearer token and requires role.
// Invalid or expired tokens get 401; valid tokens without the role get 403.
func RequireRole(validator TokenValidator, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := GetRequestID(r.Context())

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeProblem(w, r, models.NewUnauthorized(traceID, "missing or malformed bearer token"))
				return
			}

			claims, err := validator.ValidateRole(token, role)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrMissingRole):
					writeProblem(w, r, models.NewForbidden(traceID, "token lacks the "+role+" role"))
				case errors.Is(err, auth.ErrTokenExpired):
					writeProblem(w, r, models.NewUnauthorized(traceID, "access token has expired"))
				default:
					writeProblem(w, r, models.NewUnauthorized(traceID, "invalid access token"))
				}
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject returns the authenticated token subject, or "".
func GetSubject(ctx context.Context) string {
	if s, ok := ctx.Value(subjectKey{}).(string); ok {
		return s
	}
	return ""
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
