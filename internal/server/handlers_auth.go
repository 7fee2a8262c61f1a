package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "github.com/Mdwiki-TD/auth-repo/internal/errors"
	"github.com/Mdwiki-TD/auth-repo/internal/mediawiki"
	"github.com/Mdwiki-TD/auth-repo/internal/metrics"
)

const oauthTimeout = 10 * time.Second

// handleLogin starts the OAuth 1.0a handshake: fetch a request token, park it
// in the session, and send the browser to the wiki's authorize page.
func (s *Server) handleLogin(c echo.Context) error {
	ctx := c.Request().Context()

	if s.rateLimiter != nil {
		allowed, err := s.rateLimiter.Allow(ctx, c.RealIP())
		if err != nil {
			slog.Warn("Login rate limit check failed, allowing request", "error", err)
		} else if !allowed {
			metrics.LoginInitiationsTotal.WithLabelValues("rate_limited").Inc()
			return apperrors.RateLimitedError("too many login attempts, please try again later")
		}
	}

	callbackURL := fmt.Sprintf("https://%s/auth/index.php?a=callback", s.config.Domain)
	state := createState(c, loginStateKeys)
	if returnTo := s.createReturnTo(c.Request().Referer()); returnTo != "" {
		state.Set("return_to", returnTo)
	}
	if len(state) > 0 {
		callbackURL += "&" + state.Encode()
	}

	initCtx, cancel := context.WithTimeout(ctx, oauthTimeout)
	defer cancel()

	start := time.Now()
	requestToken, authorizeURL, err := s.oauth.Initiate(initCtx, callbackURL)
	metrics.ProviderRequestDuration.WithLabelValues("initiate").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LoginInitiationsTotal.WithLabelValues("provider_error").Inc()
		return apperrors.ExternalError("could not start the login with the wiki, please try again later", err)
	}

	session := s.session(c)
	session.Values[sessionKeyRequestKey] = requestToken.Key
	session.Values[sessionKeyRequestSecret] = requestToken.Secret
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("could not store the login state, please try again", err)
	}

	metrics.LoginInitiationsTotal.WithLabelValues("started").Inc()
	slog.Info("Login initiated", "client_ip", c.RealIP())

	// On localhost the browser cannot follow a https authorize redirect from
	// a http origin, so the URL is handed back in the body instead.
	if s.config.IsLocalhost() {
		return c.String(http.StatusOK, authorizeURL)
	}
	return c.Redirect(http.StatusFound, authorizeURL)
}

// handleCallback finishes the handshake: exchange the verifier for an access
// token, identify the wiki account, and persist the credential.
func (s *Server) handleCallback(c echo.Context) error {
	ctx := c.Request().Context()

	verifier := c.QueryParam("oauth_verifier")
	if verifier == "" {
		metrics.CallbacksTotal.WithLabelValues("missing_verifier").Inc()
		return apperrors.ValidationError("missing oauth_verifier, please restart the login at ?a=login")
	}

	session := s.session(c)
	requestKey, _ := session.Values[sessionKeyRequestKey].(string)
	requestSecret, _ := session.Values[sessionKeyRequestSecret].(string)
	if requestKey == "" || requestSecret == "" {
		metrics.CallbacksTotal.WithLabelValues("missing_session").Inc()
		return apperrors.ValidationError("no login in progress, please restart the login at ?a=login")
	}

	oauthCtx, cancel := context.WithTimeout(ctx, oauthTimeout)
	defer cancel()

	start := time.Now()
	accessToken, err := s.oauth.Complete(oauthCtx, mediawiki.RequestToken{Key: requestKey, Secret: requestSecret}, verifier)
	metrics.ProviderRequestDuration.WithLabelValues("token").Observe(time.Since(start).Seconds())

	// The request pair is single-use: drop it no matter how the exchange went.
	delete(session.Values, sessionKeyRequestKey)
	delete(session.Values, sessionKeyRequestSecret)

	if err != nil {
		metrics.CallbacksTotal.WithLabelValues("exchange_error").Inc()
		_ = session.Save(c.Request(), c.Response().Writer)
		return apperrors.ExternalError("the wiki rejected the login, please try again", err)
	}

	start = time.Now()
	username, err := s.oauth.Identify(oauthCtx, accessToken)
	metrics.ProviderRequestDuration.WithLabelValues("identify").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CallbacksTotal.WithLabelValues("identify_error").Inc()
		_ = session.Save(c.Request(), c.Response().Writer)
		return apperrors.ExternalError("could not verify your wiki identity, please try again", err)
	}

	session.Values[sessionKeyUsername] = username
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("could not store the login, please try again", err)
	}

	if token := s.jwt.Create(username); token != "" {
		s.cookies.Set(c, cookieJWT, token, time.Hour)
		metrics.JWTTokensIssued.Inc()
	}
	s.cookies.Set(c, cookieUsername, username, 0)

	if err := s.tokens.Save(ctx, username, accessToken.Key, accessToken.Secret); err != nil {
		return apperrors.InternalError("could not store your login, please try again", err).
			WithContext("username", username)
	}
	if err := s.users.EnsureExists(ctx, username); err != nil {
		return apperrors.InternalError("could not store your login, please try again", err).
			WithContext("username", username)
	}

	metrics.CallbacksTotal.WithLabelValues("success").Inc()
	slog.Info("Login completed", "username", username)

	if c.QueryParam("test") != "" {
		return c.String(http.StatusOK, fmt.Sprintf("logged in as %s", username))
	}
	return c.Redirect(http.StatusFound, s.callbackRedirectTarget(c))
}

// handleLogout drops the session and all identity cookies.
func (s *Server) handleLogout(c echo.Context) error {
	session := s.session(c)
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.Warn("Failed to expire session during logout", "error", err)
	}

	for _, name := range []string{cookieUsername, cookieAccessKey, cookieAccessSecret, cookieJWT} {
		s.cookies.Remove(c, name)
	}

	metrics.LogoutsTotal.Inc()

	target := s.createReturnTo(c.Request().Referer())
	if target == "" {
		target = defaultRedirect
	}
	return c.Redirect(http.StatusFound, target)
}

// handleGetUser reports the resolved identity as JSON.
func (s *Server) handleGetUser(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"username": s.currentUser(c),
	})
}
