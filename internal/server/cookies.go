package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/Mdwiki-TD/auth-repo/internal/config"
	"github.com/Mdwiki-TD/auth-repo/internal/crypto"
)

const (
	cookieUsername     = "username"
	cookieJWT          = "jwt_token"
	cookieAccessKey    = "accesskey"
	cookieAccessSecret = "access_secret"

	defaultCookieTTL = 2 * 365 * 24 * time.Hour
)

// CookieManager writes and reads browser cookies whose values are encrypted
// under the cookie key. On localhost the Secure and HttpOnly attributes are
// dropped so the flow works over plain HTTP during development.
type CookieManager struct {
	config *config.Config
	crypto *crypto.Service
	clock  clockwork.Clock
}

func NewCookieManager(cfg *config.Config, cryptoSvc *crypto.Service, clock clockwork.Clock) *CookieManager {
	return &CookieManager{
		config: cfg,
		crypto: cryptoSvc,
		clock:  clock,
	}
}

// Set writes an encrypted cookie. A non-positive ttl falls back to two years.
func (m *CookieManager) Set(c echo.Context, name, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCookieTTL
	}

	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    m.crypto.Encrypt(value, crypto.KeyCookie),
		Path:     "/",
		Domain:   m.config.Domain,
		Expires:  m.clock.Now().Add(ttl),
		Secure:   !m.config.IsLocalhost(),
		HttpOnly: !m.config.IsLocalhost(),
		SameSite: http.SameSiteLaxMode,
	})
}

// Get returns the decrypted cookie value, or "" when the cookie is absent or
// no longer decrypts. The username cookie historically stored spaces as "+",
// so those are mapped back after decryption.
func (m *CookieManager) Get(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}

	value := m.crypto.Decrypt(cookie.Value, crypto.KeyCookie)
	if name == cookieUsername {
		value = strings.ReplaceAll(value, "+", " ")
	}
	return value
}

// Remove expires the cookie with the same attributes it was set with.
func (m *CookieManager) Remove(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   m.config.Domain,
		Expires:  m.clock.Now().Add(-time.Hour),
		MaxAge:   -1,
		Secure:   !m.config.IsLocalhost(),
		HttpOnly: !m.config.IsLocalhost(),
		SameSite: http.SameSiteLaxMode,
	})
}
