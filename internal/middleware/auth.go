package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/drox/internal/token"
)

// BearerAuth проверяет заголовок Authorization: Bearer <access JWT> и кладёт
// user_id и session_id в контекст. Для WebSocket-запросов токен принимается
// также через query-параметр token (браузерный WebSocket не шлёт заголовки).
func BearerAuth(tokens *token.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := ""
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				raw = strings.TrimSpace(h[len("Bearer "):])
			}
			if raw == "" {
				raw = r.URL.Query().Get("token")
			}
			if raw == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			userID, sessionID, err := tokens.ValidateAccess(raw)
			if err != nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
