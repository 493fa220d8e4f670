package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/token"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "access-secret", "refresh-secret", "password",
}

type Config struct {
	Port                    int           `env:"PORT" envDefault:"8000"`
	Environment             string        `env:"APP_ENV" envDefault:"development"`
	DatabaseURL             string        `env:"DATABASE_URL,required"`
	RedisURL                string        `env:"REDIS_URL,required"`
	AccessTokenSecret       string        `env:"ACCESS_TOKEN_SECRET,required"`
	RefreshTokenSecret      string        `env:"REFRESH_TOKEN_SECRET,required"`
	AccessTokenTTL          time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`
	RefreshedAccessTokenTTL time.Duration `env:"REFRESHED_ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL         time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
	ConnectionRequestTTL    time.Duration `env:"CONNECTION_REQUEST_TTL" envDefault:"168h"`
	CookieSameSite          string        `env:"COOKIE_SAME_SITE" envDefault:"Strict"`
	CORSOrigins             []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	AuthRateLimitPerMin     int           `env:"AUTH_RATE_LIMIT_PER_MIN" envDefault:"10"`
	AutoMigrate             bool          `env:"AUTO_MIGRATE" envDefault:"true"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SameSite resolves the cookie SameSite mode. Outside production cookies
// are always Lax so the dev frontend on another port keeps working.
func (c *Config) SameSite() http.SameSite {
	if !c.IsProduction() {
		return http.SameSiteLaxMode
	}
	switch strings.ToLower(c.CookieSameSite) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

func (c *Config) TokenConfig() token.Config {
	return token.Config{
		AccessSecret:       c.AccessTokenSecret,
		RefreshSecret:      c.RefreshTokenSecret,
		AccessTTL:          c.AccessTokenTTL,
		RefreshedAccessTTL: c.RefreshedAccessTokenTTL,
		RefreshTTL:         c.RefreshTokenTTL,
	}
}

func (c *Config) Validate() error {
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshedAccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.ConnectionRequestTTL <= 0 {
		return errors.New("CONNECTION_REQUEST_TTL must be positive")
	}

	if c.IsProduction() {
		if err := validateSecret("ACCESS_TOKEN_SECRET", c.AccessTokenSecret); err != nil {
			return err
		}
		if err := validateSecret("REFRESH_TOKEN_SECRET", c.RefreshTokenSecret); err != nil {
			return err
		}

		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.SameSite() == http.SameSiteNoneMode {
			log.Warn().Msg("COOKIE_SAME_SITE=None in production: session cookies are sent on cross-site requests")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

// Load reads an optional .env file and then parses the environment.
// Variables already present in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env file")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
