package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// All auth actions share one dispatch route, selected by ?a=.
	// The bare root serves it too so old bookmarks keep working.
	s.echo.GET("/", s.handleDispatch)
	s.echo.GET("/auth/index.php", s.handleDispatch)
}

func (s *Server) handleDispatch(c echo.Context) error {
	switch c.QueryParam("a") {
	case "login":
		return s.handleLogin(c)
	case "callback":
		return s.handleCallback(c)
	case "logout":
		return s.handleLogout(c)
	case "get_user", "user_infos":
		return s.handleGetUser(c)
	default:
		return s.handleStatus(c)
	}
}
