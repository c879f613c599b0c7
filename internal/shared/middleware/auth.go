package middleware

import (
	"context"
	"net/http"
	"strings"

	"cashit/internal/shared/auth"
)

type contextKey string

const (
	// UserIDKey holds the authenticated member id in the request context
	UserIDKey contextKey = "userID"
	// GroupsKey holds the member's directory groups
	GroupsKey contextKey = "groups"
	// TreasurerKey holds whether the member belongs to the finance office
	TreasurerKey contextKey = "treasurer"
)

// Auth validates the session token from the Authorization header or the
// access_token cookie and puts the member identity on the request context.
func Auth(jwt *auth.JWT) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := jwt.Validate(token)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, GroupsKey, claims.Groups)
			ctx = context.WithValue(ctx, TreasurerKey, claims.Treasurer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken looks for the token in the Authorization header first,
// then falls back to the access_token cookie.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	cookie, err := r.Cookie("access_token")
	if err == nil {
		return cookie.Value
	}
	return ""
}
