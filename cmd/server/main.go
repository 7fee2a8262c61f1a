package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/Mdwiki-TD/auth-repo/internal/config"
	"github.com/Mdwiki-TD/auth-repo/internal/crypto"
	"github.com/Mdwiki-TD/auth-repo/internal/database"
	"github.com/Mdwiki-TD/auth-repo/internal/jwt"
	"github.com/Mdwiki-TD/auth-repo/internal/logging"
	"github.com/Mdwiki-TD/auth-repo/internal/mediawiki"
	"github.com/Mdwiki-TD/auth-repo/internal/metrics"
	"github.com/Mdwiki-TD/auth-repo/internal/redis"
	"github.com/Mdwiki-TD/auth-repo/internal/server"
	"github.com/Mdwiki-TD/auth-repo/internal/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *redis.Client {
	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	info := version.Get()
	metrics.BuildInfo.WithLabelValues(info.Version, info.Commit, info.BuildTime, runtime.Version()).Set(1)

	pool := setupDB(cfg)
	defer pool.Close()

	cryptoSvc, err := crypto.NewService(cfg.CookieKey, cfg.TokenKey)
	if err != nil {
		slog.Error("Failed to create crypto service", "error", err)
		os.Exit(1)
	}

	jwtSvc := jwt.NewService(cfg.JWTKey, cfg.Domain, clock)
	tokenRepo := database.NewTokenRepo(pool, cryptoSvc)
	userRepo := database.NewUserRepo(pool)
	oauthClient := mediawiki.NewClient(cfg.OAuthURL, cfg.ConsumerKey, cfg.ConsumerSecret, cfg.UserAgent)

	// Redis is optional: without it the login rate limiter is off and the
	// readiness probe skips the redis check.
	var (
		redisClient *redis.Client
		rateLimiter *redis.LoginRateLimiter
	)
	if cfg.RedisURL != "" {
		redisClient = setupRedis(cfg)
		defer func() { _ = redisClient.Close() }()
		rateLimiter = redis.NewLoginRateLimiter(redisClient, clock, cfg.LoginRateLimit, time.Duration(cfg.LoginRateWindowMinutes)*time.Minute)
	}

	// Pass nils explicitly to avoid typed-nil interfaces in the server.
	var srv *server.Server
	if redisClient != nil {
		srv = server.NewServer(cfg, oauthClient, tokenRepo, userRepo, jwtSvc, cryptoSvc, pool, redisClient, rateLimiter, clock)
	} else {
		srv = server.NewServer(cfg, oauthClient, tokenRepo, userRepo, jwtSvc, cryptoSvc, pool, nil, nil, clock)
	}

	done := runGracefulShutdown(srv)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
