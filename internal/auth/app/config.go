package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/townhall-app/townhall/internal/auth/mail"
	"github.com/townhall-app/townhall/pkg/cryptox"
	"github.com/townhall-app/townhall/pkg/httpx"
	"github.com/townhall-app/townhall/pkg/jwtx"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	MailSMTP = "smtp"
	MailLog  = "log"
)

type Config struct {
	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 5000)

	Issuer     string // Issuer claim for tokens (default: townhall-auth)
	JWTSecret  string // HS256 secret, at least 32 bytes. Generated per process in dev when unset.
	BcryptCost int    // bcrypt cost for passwords and token secrets (default: 10)

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite file path (default: ./auth.db)
	DatabaseURL    string // Postgres DSN, required for the postgres driver

	FrontendURL   string   // Where OAuth callbacks send the browser (default: http://localhost:5173)
	PublicBaseURL string   // Externally visible base URL used for OAuth redirect URIs
	CORSOrigins   []string // Allowed browser origins (default: FrontendURL)

	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string

	MailDriver string // smtp or log (default: smtp when EMAIL_HOST is set, log otherwise)
	EmailHost  string
	EmailPort  int // default: 587
	EmailUser  string
	EmailPass  string
	EmailFrom  string

	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	RateLimits           httpx.RateLimitProfiles
}

// LoadConfig reads the process environment after merging an optional .env
// file. Variables already set in the environment win over the file.
func LoadConfig() Config {
	_ = godotenv.Load() // a missing .env is fine
	return loadConfig(os.Getenv)
}

func loadConfig(getenv func(string) string) Config {
	env := envReader(getenv)

	cfg := Config{
		Env:       env.str("ENV", "dev"),
		LogLevel:  env.str("LOG_LEVEL", "info"),
		LogFormat: env.str("LOG_FORMAT", "json"),
		Port:      env.integer("PORT", 5000),

		Issuer:     env.str("AUTH_ISSUER", "townhall-auth"),
		JWTSecret:  getenv("JWT_SECRET"),
		BcryptCost: env.integer("BCRYPT_COST", cryptox.DefaultCost),

		DatabaseDriver: strings.ToLower(env.str("DATABASE_DRIVER", DriverSQLite)),
		DatabaseFile:   env.str("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:    getenv("DATABASE_URL"),

		FrontendURL:   strings.TrimRight(env.str("FRONTEND_URL", "http://localhost:5173"), "/"),
		PublicBaseURL: strings.TrimRight(getenv("PUBLIC_BASE_URL"), "/"),

		GoogleClientID:     getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET"),
		GitHubClientID:     getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: getenv("GITHUB_CLIENT_SECRET"),

		EmailHost: getenv("EMAIL_HOST"),
		EmailPort: env.integer("EMAIL_PORT", 587),
		EmailUser: getenv("EMAIL_USER"),
		EmailPass: getenv("EMAIL_PASS"),
		EmailFrom: env.str("EMAIL_FROM", mail.DefaultFrom),

		ShutdownGracePeriod:  env.duration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: env.duration("HOUSEKEEPING_INTERVAL", time.Hour),
		RateLimits:           httpx.LoadRateLimitProfiles(getenv),
	}

	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	cfg.MailDriver = MailLog
	if cfg.EmailHost != "" {
		cfg.MailDriver = MailSMTP
	}
	if d := getenv("MAIL_DRIVER"); d != "" {
		cfg.MailDriver = strings.ToLower(d)
	}

	cfg.CORSOrigins = splitList(getenv("CORS_ORIGINS"))
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{cfg.FrontendURL}
	}

	return cfg
}

// Validate reports configuration that would leave the service unable to
// start or insecure outside development.
func (c Config) Validate() error {
	var errs []error

	switch {
	case c.JWTSecret == "" && c.Env != "dev":
		errs = append(errs, errors.New("JWT_SECRET is required"))
	case c.JWTSecret != "" && len(c.JWTSecret) < jwtx.MinSecretLength:
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", jwtx.MinSecretLength))
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_FILE is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	switch c.MailDriver {
	case MailSMTP:
		if c.EmailHost == "" {
			errs = append(errs, errors.New("EMAIL_HOST is required for the smtp mail driver"))
		}
	case MailLog:
		if c.Env == "prod" {
			errs = append(errs, errors.New("the log mail driver is not allowed in prod"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_DRIVER %q", c.MailDriver))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}

	return errors.Join(errs...)
}

type envReader func(string) string

func (e envReader) str(key, defaultValue string) string {
	if value := e(key); value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) integer(key string, defaultValue int) int {
	if v, err := strconv.Atoi(e(key)); err == nil {
		return v
	}
	return defaultValue
}

func (e envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value := e(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
