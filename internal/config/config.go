package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment-derived setting the service needs. It is
// loaded once at process start and treated as read-only afterwards; missing
// required secrets fail Load rather than surfacing mid-request.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	AppName string `env:"APP_NAME" envDefault:"LeetBase Auth"`
	Env     string `env:"ENV" envDefault:"DEV"`

	// AppURL is where the browser lands after the OAuth callback.
	AppURL string `env:"APP_URL,required"`

	// ServiceToken lets trusted internal callers bypass CSRF and
	// email-verification checks on guarded routes.
	ServiceToken string `env:"SERVICE_TOKEN,required"`

	// Signing secrets. Access and refresh tokens use distinct secrets so a
	// leak of one cannot forge the other.
	TokenSecret        string `env:"TOKEN_SECRET,required"`
	RefreshTokenSecret string `env:"REFRESH_TOKEN_SECRET,required"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"24h"`

	RedisURL string `env:"REDIS_URL,required"`

	SMTPHost     string `env:"SMTP_HOST,required"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPEmail    string `env:"SMTP_EMAIL,required"`
	SMTPPassword string `env:"SMTP_PASSWORD,required"`
	SMTPSender   string `env:"SMTP_SENDER"`

	GithubClientID     string `env:"GH_CLIENT_ID,required"`
	GithubClientSecret string `env:"GH_CLIENT_SECRET,required"`
}

// Load parses the environment into a Config. Any missing required variable
// is a configuration error and should abort startup.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.SMTPSender == "" {
		cfg.SMTPSender = cfg.SMTPEmail
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production cookie
// attributes (Secure, SameSite=None, Partitioned).
func (c Config) IsProduction() bool {
	return c.Env == "PROD"
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	if len(c.Port) > 0 && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}
