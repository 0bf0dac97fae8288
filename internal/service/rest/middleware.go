package rest

import (
	"context"
	"net/http"
)

// headerUserID — заголовок с идентификатором пользователя. Аутентификация
// выполняется внешним шлюзом, сервис доверяет значению как есть.
const headerUserID = "X-User-ID"

type contextKey string

const userIDKey contextKey = "userID"

// requireUser требует заголовок X-User-ID и кладёт его в контекст запроса.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get(headerUserID)
		if uid == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, uid)))
	})
}

// userID достаёт идентификатор пользователя из контекста запроса.
func userID(r *http.Request) string {
	uid, _ := r.Context().Value(userIDKey).(string)
	return uid
}
