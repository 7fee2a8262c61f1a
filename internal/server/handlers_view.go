package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// handleStatus answers dispatch requests without a recognized action with the
// identity status: who the browser is logged in as, and where to log in.
func (s *Server) handleStatus(c echo.Context) error {
	username := s.currentUser(c)
	return c.JSON(http.StatusOK, map[string]any{
		"username":  username,
		"logged_in": username != "",
		"login_url": "/auth/index.php?a=login",
	})
}
