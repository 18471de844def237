package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Cookie names for the token pair.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// CookieWriter sets and clears the auth cookies. Both cookies are httpOnly
// with SameSite=Lax; the refresh cookie is scoped to the auth route prefix
// so it never travels with ordinary API calls.
type CookieWriter struct {
	Domain     string
	Secure     bool
	AuthPath   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SetAuthCookies writes both token cookies onto the response.
func (w CookieWriter) SetAuthCookies(c *gin.Context, accessToken, refreshToken string) {
	w.set(c, AccessCookieName, accessToken, "/", w.AccessTTL)
	w.set(c, RefreshCookieName, refreshToken, w.AuthPath, w.RefreshTTL)
}

// ClearAuthCookies expires both token cookies.
func (w CookieWriter) ClearAuthCookies(c *gin.Context) {
	w.set(c, AccessCookieName, "", "/", -time.Second)
	w.set(c, RefreshCookieName, "", w.AuthPath, -time.Second)
}

func (w CookieWriter) set(c *gin.Context, name, value, path string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if value == "" {
		maxAge = -1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   w.Domain,
		MaxAge:   maxAge,
		Secure:   w.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
