package middleware

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/antonminaichev/dermamart/internal/auth"
	"github.com/antonminaichev/dermamart/internal/rest"
	"github.com/antonminaichev/dermamart/internal/types/user"
	"github.com/golang-jwt/jwt/v4"
)

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (w gzipResponseWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

func GzipHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") == "gzip" {
			gzr, err := gzip.NewReader(r.Body)
			if err != nil {
				rest.Error(rw, http.StatusBadRequest, "failed to create gzip reader")
				return
			}
			defer gzr.Close()
			r.Body = io.NopCloser(gzr)
		}

		if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			rw.Header().Set("Content-Encoding", "gzip")
			gzw := gzip.NewWriter(rw)
			defer gzw.Close()

			gzrw := gzipResponseWriter{Writer: gzw, ResponseWriter: rw}
			next.ServeHTTP(gzrw, r)
		} else {
			next.ServeHTTP(rw, r)
		}
	})
}

// UserDirectory resolves the token subject to a live user record, so a
// role change or account deletion takes effect immediately.
type UserDirectory interface {
	FindUserByEmail(ctx context.Context, email string) (*user.User, error)
}

type ctxKeyIdentity struct{}

func JWTMiddleware(secret []byte, users UserDirectory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				rest.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return secret, nil
			})
			if err != nil || !token.Valid {
				rest.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			u, err := users.FindUserByEmail(r.Context(), claims.Subject)
			if err != nil {
				rest.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			role, ok := auth.ParseRole(u.Role)
			if !ok {
				// Unknown role is always deny.
				rest.Error(w, http.StatusForbidden, "invalid or missing user role")
				return
			}

			ident := auth.Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: role}
			ctx := context.WithValue(r.Context(), ctxKeyIdentity{}, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route group to the given roles. It must run after
// JWTMiddleware.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := IdentityFromContext(r.Context())
			if !ok {
				rest.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, ok := allowed[ident.Role]; !ok {
				rest.Error(w, http.StatusForbidden, "access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	ident, ok := ctx.Value(ctxKeyIdentity{}).(auth.Identity)
	return ident, ok
}

func ContextWithIdentity(ctx context.Context, ident auth.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, ident)
}
