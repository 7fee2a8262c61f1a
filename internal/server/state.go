package server

import (
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

const defaultRedirect = "/Translation_Dashboard/index.php"

var (
	// loginStateKeys are query params carried from the login request into the
	// OAuth callback URL.
	loginStateKeys = []string{"cat", "code", "test"}

	// callbackStateKeys are query params forwarded from the callback to the
	// dashboard redirect.
	callbackStateKeys = []string{"cat", "code"}
)

// createState collects the non-empty allow-listed query params of the request.
func createState(c echo.Context, keys []string) url.Values {
	state := url.Values{}
	for _, key := range keys {
		if value := c.QueryParam(key); value != "" {
			state.Set(key, value)
		}
	}
	return state
}

// createReturnTo accepts a referer as a post-login destination only when it
// points at our own host (or localhost) and is not itself an auth URL.
func (s *Server) createReturnTo(referer string) string {
	if referer == "" {
		return ""
	}

	parsed, err := url.Parse(referer)
	if err != nil {
		return ""
	}

	host := parsed.Hostname()
	if host != s.config.Domain && host != "localhost" {
		return ""
	}

	if strings.Contains(referer, "/auth/") {
		return ""
	}

	return referer
}

// callbackRedirectTarget picks where the callback sends the browser: an
// accepted return_to wins, otherwise the dashboard index with forwarded state.
func (s *Server) callbackRedirectTarget(c echo.Context) string {
	if returnTo := c.QueryParam("return_to"); returnTo != "" {
		// Only an absolute scheme+host URL is honored; relative, scheme-less,
		// or unparseable values fall back to the dashboard index.
		parsed, err := url.Parse(returnTo)
		if err == nil && parsed.IsAbs() && parsed.Host != "" &&
			!strings.Contains(returnTo, "/auth/") && parsed.Path != defaultRedirect {
			return returnTo
		}
	}

	target := defaultRedirect
	if state := createState(c, callbackStateKeys); len(state) > 0 {
		target += "?" + state.Encode()
	}
	return target
}
