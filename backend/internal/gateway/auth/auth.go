// ============================================================================
// backend/internal/gateway/auth/auth.go
// JWT authentication and role guards
// ============================================================================

package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"sgms_backend/backend/internal/gateway/util"
)

type contextKey string

const userContextKey contextKey = "auth_user"

// Claims is the JWT payload issued by the auth side of the system.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// AuthenticatedUser is the verified identity attached to a request.
type AuthenticatedUser struct {
	ID   string
	Role string
	Name string
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	user, ok := ctx.Value(userContextKey).(AuthenticatedUser)
	return user, ok
}

// WithUser attaches an authenticated user to a context. Outside of the
// middleware itself this is only useful to handler tests.
func WithUser(ctx context.Context, user AuthenticatedUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// Authenticate verifies the bearer token and attaches the user identity to
// the request context. Requests without a valid token are rejected.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := util.ExtractToken(r)
			if err != nil {
				util.WriteJSONError(w, http.StatusUnauthorized, err.Error())
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				util.WriteJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user := AuthenticatedUser{
				ID:   claims.UserID,
				Role: claims.Role,
				Name: claims.Name,
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireRoles rejects authenticated requests whose role is not in the
// allowed set.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				util.WriteJSONError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if _, ok := allowed[user.Role]; !ok {
				util.WriteJSONError(w, http.StatusForbidden, "You do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
