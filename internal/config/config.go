package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const defaultOAuthURL = "https://meta.wikimedia.org/w/index.php?title=Special:OAuth"

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	Domain    string `env:"DOMAIN" default:"localhost"`
	OAuthURL  string `env:"OAUTH_URL"`
	UserAgent string `env:"USER_AGENT" default:"mdwiki MediaWiki OAuth Client/1.0"`

	ConsumerKey    string `env:"CONSUMER_KEY"`
	ConsumerSecret string `env:"CONSUMER_SECRET"`
	CookieKey      string `env:"COOKIE_KEY"`
	TokenKey       string `env:"TOKEN_KEY"`
	JWTKey         string `env:"JWT_KEY"`
	SessionSecret  string `env:"SESSION_SECRET"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	LoginRateLimit         int `env:"LOGIN_RATE_LIMIT" default:"10"`
	LoginRateWindowMinutes int `env:"LOGIN_RATE_WINDOW_MINUTES" default:"1"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.OAuthURL == "" {
		cfg.OAuthURL = defaultOAuthURL
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsProduction reports whether the service runs with production requirements.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// IsLocalhost reports whether cookies target the local-development host,
// which disables the Secure and HttpOnly attributes.
func (c *Config) IsLocalhost() bool {
	return c.Domain == "localhost"
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Production must carry the full secret surface. Development tolerates
	// empty values so the flow can be exercised locally; crypto and JWT then
	// degrade to empty results instead of failing.
	if cfg.IsProduction() {
		required := map[string]string{
			"CONSUMER_KEY":    cfg.ConsumerKey,
			"CONSUMER_SECRET": cfg.ConsumerSecret,
			"COOKIE_KEY":      cfg.CookieKey,
			"TOKEN_KEY":       cfg.TokenKey,
			"JWT_KEY":         cfg.JWTKey,
			"SESSION_SECRET":  cfg.SessionSecret,
		}
		for name, value := range required {
			if value == "" {
				return fmt.Errorf("%s is required in production", name)
			}
		}
	}

	for name, value := range map[string]string{"COOKIE_KEY": cfg.CookieKey, "TOKEN_KEY": cfg.TokenKey} {
		if value == "" {
			continue
		}
		keyBytes, err := hex.DecodeString(value)
		if err != nil {
			return fmt.Errorf("%s must be valid hex: %w", name, err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("%s must be exactly 64 hex characters (32 bytes), got %d bytes", name, len(keyBytes))
		}
	}

	if cfg.LoginRateLimit <= 0 || cfg.LoginRateWindowMinutes <= 0 {
		return fmt.Errorf("login rate limit settings must be positive")
	}

	return nil
}
