package handlers

import (
	"net/http"
	"time"

	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/models"
)

const refreshTokenCookie = "refreshToken"

// CookiePolicy controls the attributes of the session cookies.
type CookiePolicy struct {
	Secure   bool
	SameSite http.SameSite
}

func (p CookiePolicy) sameSite() http.SameSite {
	if p.SameSite == 0 {
		return http.SameSiteLaxMode
	}
	return p.SameSite
}

func (p CookiePolicy) setSession(w http.ResponseWriter, tokens models.SessionTokens) {
	p.set(w, middleware.AccessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt)
	p.set(w, refreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt)
}

func (p CookiePolicy) clearSession(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0).UTC(),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   p.Secure,
			SameSite: p.sameSite(),
		})
	}
}

func (p CookiePolicy) set(w http.ResponseWriter, name, value string, expires time.Time) {
	if value == "" {
		return
	}
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.sameSite(),
	}
	if !expires.IsZero() {
		maxAge := int(time.Until(expires).Seconds())
		if maxAge < 1 {
			maxAge = 1
		}
		cookie.Expires = expires.UTC()
		cookie.MaxAge = maxAge
	}
	http.SetCookie(w, cookie)
}
