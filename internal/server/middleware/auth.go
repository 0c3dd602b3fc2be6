package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/puzzlesync/internal/server/handlers"
)

//go:generate go tool moq -out auth_mock.go . SessionLookup

// SessionLookup определяет контракт внешнего коллаборатора аутентификации:
// разрешение bearer-токена в userID. Сами сессии и их хранение
// вне зоны ответственности этого сервиса.
type SessionLookup interface {
	Lookup(ctx context.Context, token string) (userID string, err error)
}

// AuthMiddleware создает middleware для проверки bearer-токена
// через внешний SessionLookup
func AuthMiddleware(logger *slog.Logger, sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("Invalid Authorization header format")
				http.Error(w, "Unauthorized: invalid token format", http.StatusUnauthorized)
				return
			}

			userID, err := sessions.Lookup(r.Context(), parts[1])
			if err != nil {
				logger.Warn("Session lookup failed", "error", err)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			ctx := handlers.WithUserID(r.Context(), userID)
			logger.Debug("User authenticated", "user_id", userID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
