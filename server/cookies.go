package server

import (
	"net/http"
	"time"
)

const (
	refreshCookieName = "refresh_token"
	csrfCookieName    = "_csrf"
)

// cookieWriter centralises the attributes both session cookies share. In
// production the service sits behind a cross-site frontend, so the cookies
// need SameSite=None with Secure and Partitioned set. Local development
// runs over plain HTTP where SameSite=Lax is the only workable option.
type cookieWriter struct {
	production bool
	refreshTTL time.Duration
}

func (c cookieWriter) setSession(w http.ResponseWriter, refreshToken, csrfToken string) {
	c.set(w, refreshCookieName, refreshToken, c.refreshTTL)
	c.set(w, csrfCookieName, csrfToken, 0)
}

func (c cookieWriter) clearSession(w http.ResponseWriter) {
	c.set(w, refreshCookieName, "", -time.Second)
	c.set(w, csrfCookieName, "", -time.Second)
}

func (c cookieWriter) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
	} else if ttl < 0 {
		cookie.MaxAge = -1
	}
	if c.production {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Partitioned = true
	}
	http.SetCookie(w, cookie)
}
