package cart

import (
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// Cookie writes and clears the anonymous cart cookie.
type Cookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// NewCookie derives cookie settings from the cart config.
func NewCookie(cfg config.CartConfig) Cookie {
	name := cfg.CookieName
	if name == "" {
		name = "cart"
	}
	return Cookie{Name: name, TTL: cfg.CookieTTL, Secure: cfg.CookieSecure}
}

// Read returns the raw cookie value, or "" when absent.
func (c Cookie) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (c Cookie) Write(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.TTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Expire tells the client to drop the cookie.
func (c Cookie) Expire(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
