package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/little-explorers/storefront/pkg/config"
	"github.com/little-explorers/storefront/pkg/logger"
)

const defaultSessionCookie = "sf_session"

// Session binds the request to an anonymous shopping session. The id lives
// in a cookie; a missing or malformed cookie starts a new session. The
// cookie expiry slides forward on every request.
func Session(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	name := strings.TrimSpace(cfg.CookieName)
	if name == "" {
		name = defaultSessionCookie
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(name); err == nil {
				if parsed, err := uuid.Parse(cookie.Value); err == nil {
					sessionID = parsed.String()
				}
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			cookie := &http.Cookie{
				Name:     name,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				Secure:   cfg.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			}
			if cfg.TTL > 0 {
				cookie.Expires = time.Now().Add(cfg.TTL)
				cookie.MaxAge = int(cfg.TTL.Seconds())
			}
			http.SetCookie(w, cookie)

			ctx := WithSessionID(r.Context(), sessionID)
			ctx = logg.WithSessionID(ctx, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
