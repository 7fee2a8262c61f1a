package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Mdwiki-TD/auth-repo/internal/config"
	"github.com/Mdwiki-TD/auth-repo/internal/correlation"
	"github.com/Mdwiki-TD/auth-repo/internal/crypto"
	"github.com/Mdwiki-TD/auth-repo/internal/domain"
	apperrors "github.com/Mdwiki-TD/auth-repo/internal/errors"
	"github.com/Mdwiki-TD/auth-repo/internal/jwt"
	"github.com/Mdwiki-TD/auth-repo/internal/mediawiki"
)

const (
	sessionName = "wikiauth-session"

	sessionKeyRequestKey    = "request_key"
	sessionKeyRequestSecret = "request_secret"
	sessionKeyUsername      = "username"
)

// wikiOAuthClient is the slice of the MediaWiki client the handlers need.
type wikiOAuthClient interface {
	Initiate(ctx context.Context, callbackURL string) (mediawiki.RequestToken, string, error)
	Complete(ctx context.Context, requestToken mediawiki.RequestToken, verifier string) (mediawiki.AccessToken, error)
	Identify(ctx context.Context, accessToken mediawiki.AccessToken) (string, error)
}

// loginRateLimiter throttles login initiations per client IP (nil disables it).
type loginRateLimiter interface {
	Allow(ctx context.Context, clientIP string) (bool, error)
}

// postgresHealthChecker is a minimal interface for PostgreSQL health checks
type postgresHealthChecker interface {
	Ping(ctx context.Context) error
}

// redisHealthChecker is a minimal interface for Redis health checks (nil skips it)
type redisHealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo         *echo.Echo
	config       *config.Config
	oauth        wikiOAuthClient
	tokens       domain.TokenRepository
	users        domain.UserRepository
	jwt          *jwt.Service
	cookies      *CookieManager
	sessionStore *sessions.CookieStore
	rateLimiter  loginRateLimiter
	db           postgresHealthChecker
	redisClient  redisHealthChecker
	clock        clockwork.Clock
	startTime    time.Time
}

func NewServer(
	cfg *config.Config,
	oauth wikiOAuthClient,
	tokens domain.TokenRepository,
	users domain.UserRepository,
	jwtSvc *jwt.Service,
	cryptoSvc *crypto.Service,
	db postgresHealthChecker,
	redisClient redisHealthChecker,
	rateLimiter loginRateLimiter,
	clock clockwork.Clock,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(correlationMiddleware())
	e.Use(apperrors.Middleware())

	// Session store: browser-session lifetime, mirroring the old PHP sessions.
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0,
		HttpOnly: !cfg.IsLocalhost(),
		Secure:   !cfg.IsLocalhost(),
		SameSite: http.SameSiteLaxMode,
	}

	srv := &Server{
		echo:         e,
		config:       cfg,
		oauth:        oauth,
		tokens:       tokens,
		users:        users,
		jwt:          jwtSvc,
		cookies:      NewCookieManager(cfg, cryptoSvc, clock),
		sessionStore: sessionStore,
		rateLimiter:  rateLimiter,
		db:           db,
		redisClient:  redisClient,
		clock:        clock,
		startTime:    clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// correlationMiddleware tags every request context with a fresh correlation ID
// so all slog lines of one request share it.
func correlationMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// session returns the request's session, falling back to a fresh one when the
// stored cookie no longer decodes.
func (s *Server) session(c echo.Context) *sessions.Session {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.Warn("Failed to decode session, starting fresh", "error", err)
	}
	return session
}
