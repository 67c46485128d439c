package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/wastewise/backend/internal/auth"
	"github.com/wastewise/backend/internal/domain"
	"github.com/wastewise/backend/pkg/response"
)

type contextKey string

const (
	AccountIDKey contextKey = "account_id"
	CategoryKey  contextKey = "category"
)

// AuthMiddleware creates JWT authentication middleware
func AuthMiddleware(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := jwtManager.ValidateAccessToken(parts[1])
			if err != nil {
				if err == auth.ErrExpiredToken {
					response.Unauthorized(w, "token has expired")
					return
				}
				response.Unauthorized(w, "invalid token")
				return
			}

			category, err := domain.ParseCategory(claims.UserType)
			if err != nil {
				response.Unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), AccountIDKey, claims.AccountID)
			ctx = context.WithValue(ctx, CategoryKey, category)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCategory restricts a route to accounts of the given categories.
// It must run after AuthMiddleware.
func RequireCategory(categories ...domain.Category) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			category, ok := GetCategory(r.Context())
			if !ok {
				response.Unauthorized(w, "missing authentication")
				return
			}
			for _, c := range categories {
				if category == c {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Forbidden(w, "insufficient permissions")
		})
	}
}

// GetAccountID extracts the authenticated account ID from context
func GetAccountID(ctx context.Context) (uuid.UUID, bool) {
	accountID, ok := ctx.Value(AccountIDKey).(uuid.UUID)
	return accountID, ok
}

// GetCategory extracts the authenticated account category from context
func GetCategory(ctx context.Context) (domain.Category, bool) {
	category, ok := ctx.Value(CategoryKey).(domain.Category)
	return category, ok
}
