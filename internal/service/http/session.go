package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	// SessionHeader — заголовок с идентификатором сессии корзины.
	SessionHeader = "X-Session-Id"
	// SessionCookie — cookie с идентификатором сессии корзины.
	SessionCookie = "sid"

	maxSessionIDLen   = 128
	sessionCookieDays = 30
)

type sessionKey struct{}

// sessionMiddleware берёт сессию из заголовка или cookie, иначе выдаёт новую.
// Идентификатор всегда возвращается клиенту в заголовке и cookie.
func sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := sessionFromRequest(r)
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		w.Header().Set(SessionHeader, sessionID)
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   sessionCookieDays * 24 * 60 * 60,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := context.WithValue(r.Context(), sessionKey{}, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromRequest(r *http.Request) string {
	if id := cleanSessionID(r.Header.Get(SessionHeader)); id != "" {
		return id
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cleanSessionID(cookie.Value)
	}
	return ""
}

func cleanSessionID(raw string) string {
	id := strings.TrimSpace(raw)
	if len(id) > maxSessionIDLen {
		return ""
	}
	for _, r := range id {
		if !(r == '-' || r == '_' || r == '.' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return ""
		}
	}
	return id
}

// SessionID возвращает сессию запроса.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
