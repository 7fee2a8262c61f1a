package server

import (
	"log/slog"

	"github.com/labstack/echo/v4"
)

// currentUser resolves the authenticated username for the request, or ""
// for an anonymous visitor.
//
// On localhost the gorilla session is authoritative (cookies lack the Secure
// attribute there and the encrypted cookie may not exist). In production the
// encrypted username cookie is honored only while a stored access credential
// backs it; a cookie without one is cleared so the browser falls back to
// anonymous instead of presenting a dead identity.
func (s *Server) currentUser(c echo.Context) string {
	if s.config.IsLocalhost() {
		return s.sessionUsername(c)
	}

	username := s.cookies.Get(c, cookieUsername)
	if username == "" {
		return ""
	}

	exists, err := s.tokens.Exists(c.Request().Context(), username)
	if err != nil {
		slog.Error("Failed to check stored credential", "username", username, "error", err)
		return ""
	}

	if !exists {
		s.cookies.Remove(c, cookieUsername)
		s.clearSessionUsername(c)
		return ""
	}

	return username
}

func (s *Server) sessionUsername(c echo.Context) string {
	session := s.session(c)
	username, _ := session.Values[sessionKeyUsername].(string)
	return username
}

func (s *Server) clearSessionUsername(c echo.Context) {
	session := s.session(c)
	if _, ok := session.Values[sessionKeyUsername]; !ok {
		return
	}
	delete(session.Values, sessionKeyUsername)
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.Warn("Failed to clear session username", "error", err)
	}
}
