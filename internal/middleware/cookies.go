package middleware

import (
	"net/http"
	"time"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// Cookies writes the session cookies with one fixed attribute set.
type Cookies struct {
	Secure   bool
	SameSite http.SameSite
}

func NewCookies(secure bool, sameSite http.SameSite) *Cookies {
	return &Cookies{Secure: secure, SameSite: sameSite}
}

func (c *Cookies) SetAccess(w http.ResponseWriter, token string, ttl time.Duration) {
	c.set(w, AccessTokenCookie, token, int(ttl.Seconds()))
}

func (c *Cookies) SetRefresh(w http.ResponseWriter, token string, ttl time.Duration) {
	c.set(w, RefreshTokenCookie, token, int(ttl.Seconds()))
}

// Clear expires both session cookies.
func (c *Cookies) Clear(w http.ResponseWriter) {
	c.set(w, AccessTokenCookie, "", -1)
	c.set(w, RefreshTokenCookie, "", -1)
}

func (c *Cookies) set(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// ReadCookie returns the named cookie value or "".
func ReadCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
