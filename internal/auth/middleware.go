package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sweettrack/backend/internal/db/models"
	"gorm.io/gorm"
)

type contextKey string

const userIDKey contextKey = "userId"

// UserID returns the authenticated user ID from the request context, empty if
// the request was not authenticated.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID injects a user ID into the context. Exposed for handler tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RequireAuth validates the bearer token and places the user ID in the
// request context. Tokens with a stale TokenVersion are rejected so server-side
// logout works without a denylist.
func RequireAuth(mgr *Manager, database *gorm.DB) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "Not authorized, no token")
				return
			}

			claims, err := mgr.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					unauthorized(w, "Session expired. Please login again.")
					return
				}
				unauthorized(w, "Not authorized, token invalid")
				return
			}

			var user models.User
			if err := database.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
				unauthorized(w, "Not authorized, user not found")
				return
			}
			if user.TokenVersion != claims.TokenVersion {
				unauthorized(w, "Session invalidated. Please login again.")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), user.ID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
