package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/tokens"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "token"
)

// BearerAuth resolves the Authorization header against the token store and
// rejects requests without a live session.
func BearerAuth(store tokens.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			user, err := store.Resolve(r.Context(), token)
			if errors.Is(err, tokens.ErrTokenNotFound) {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			if err != nil {
				log.Printf("token resolve error: %v", err)
				respondError(w, http.StatusInternalServerError, "internal_error", "failed to resolve session")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			ctx = context.WithValue(ctx, tokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func userFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userContextKey).(*domain.User)
	return user
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}
