package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/antonminaichev/dermamart/internal/auth"
	"github.com/antonminaichev/dermamart/internal/storage"
	"github.com/antonminaichev/dermamart/internal/types/user"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory struct {
	users map[string]*user.User
}

func (d *stubDirectory) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	u, ok := d.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return u, nil
}

func signToken(t *testing.T, secret []byte, subject string, ttl time.Duration) string {
	t.Helper()
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestJWTMiddleware(t *testing.T) {
	secret := []byte("secret")
	dir := &stubDirectory{users: map[string]*user.User{
		"anna@example.com": {ID: "u1", Name: "Anna", Email: "anna@example.com", Role: "pharmacist"},
		"bad@example.com":  {ID: "u2", Email: "bad@example.com", Role: "superuser"},
	}}

	var got auth.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		got = ident
		w.WriteHeader(http.StatusOK)
	})
	handler := JWTMiddleware(secret, dir)(next)

	tests := []struct {
		name       string
		authHeader string
		wantCode   int
	}{
		{"valid token", "Bearer " + signToken(t, secret, "anna@example.com", time.Hour), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, []byte("other"), "anna@example.com", time.Hour), http.StatusUnauthorized},
		{"expired token", "Bearer " + signToken(t, secret, "anna@example.com", -time.Minute), http.StatusUnauthorized},
		{"unknown subject", "Bearer " + signToken(t, secret, "gone@example.com", time.Hour), http.StatusUnauthorized},
		{"unknown role", "Bearer " + signToken(t, secret, "bad@example.com", time.Hour), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}

	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, auth.RolePharmacist, got.Role)
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireRole(auth.RoleAdmin, auth.RolePharmacist)(next)

	tests := []struct {
		name     string
		ident    *auth.Identity
		wantCode int
	}{
		{"admin allowed", &auth.Identity{UserID: "u1", Role: auth.RoleAdmin}, http.StatusOK},
		{"pharmacist allowed", &auth.Identity{UserID: "u2", Role: auth.RolePharmacist}, http.StatusOK},
		{"plain user denied", &auth.Identity{UserID: "u3", Role: auth.RoleUser}, http.StatusForbidden},
		{"no identity", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			if tt.ident != nil {
				req = req.WithContext(ContextWithIdentity(req.Context(), *tt.ident))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
