package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elninowatch/elninowatch/internal/api/middleware"
	"github.com/elninowatch/elninowatch/internal/auth"
)

func TestRequireRole(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tokens := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Clock:      func() time.Time { return now },
	})
	expiredIssuer := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Clock:      func() time.Time { return now.Add(-24 * time.Hour) },
	})

	admin, _, err := tokens.Issue("ops@example.com", auth.RoleAdmin)
	require.NoError(t, err)
	viewer, _, err := tokens.Issue("viewer@example.com")
	require.NoError(t, err)
	expired, _, err := expiredIssuer.Issue("ops@example.com", auth.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		status  int
		subject string
	}{
		{"no header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, ""},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"missing role", "Bearer " + viewer, http.StatusForbidden, ""},
		{"admin", "Bearer " + admin, http.StatusOK, "ops@example.com"},
		{"lowercase scheme", "bearer " + admin, http.StatusOK, "ops@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var subject string
			h := middleware.RequireRole(tokens, auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject = middleware.GetSubject(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/admin/resolutions", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.subject, subject)
			if tt.status != http.StatusOK {
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			}
		})
	}
}
