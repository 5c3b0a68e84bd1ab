package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/townhall-app/townhall/internal/auth/http"
	"github.com/townhall-app/townhall/internal/auth/mail"
	"github.com/townhall-app/townhall/internal/auth/oauth"
	"github.com/townhall-app/townhall/internal/auth/service"
	"github.com/townhall-app/townhall/internal/auth/store"
	"github.com/townhall-app/townhall/internal/auth/store/drivers/postgres"
	"github.com/townhall-app/townhall/internal/auth/store/drivers/sqlite"
	"github.com/townhall-app/townhall/pkg/cryptox"
	"github.com/townhall-app/townhall/pkg/httpx"
	"github.com/townhall-app/townhall/pkg/jwtx"
	"github.com/townhall-app/townhall/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v1.0.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	signer   *jwtx.HS256
	hasher   *cryptox.Hasher
	mailer   mail.Sender
	registry *prometheus.Registry

	// Services
	authService         *service.AuthService
	federationService   *service.FederationService
	housekeepingService *service.HousekeepingService
	stateCodec          *oauth.StateCodec
	providers           oauth.Registry

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// Option customises an Application before its dependencies are built.
type Option func(*Application)

// WithLogger replaces the logger built from Config.
func WithLogger(l *slog.Logger) Option {
	return func(a *Application) { a.logger = l }
}

// WithMailer replaces the sender chosen by MAIL_DRIVER.
func WithMailer(m mail.Sender) Option {
	return func(a *Application) { a.mailer = m }
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{cfg: cfg}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		})
	}

	if err := app.initSigner(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(context.Background()); err != nil {
		return nil, err
	}
	if err := app.initMailer(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler returns the root HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"database", app.cfg.DatabaseDriver,
		"mail", app.cfg.MailDriver,
		"oauth_providers", len(app.providers),
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	return app.Close()
}

// Close releases the database. Use it instead of Shutdown when Run was never called.
func (app *Application) Close() error {
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initSigner() error {
	secret := []byte(app.cfg.JWTSecret)
	if len(secret) == 0 {
		// Only reachable in dev; Validate rejects an empty secret elsewhere.
		secret = make([]byte, jwtx.MinSecretLength)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate dev jwt secret: %w", err)
		}
		secret = []byte(hex.EncodeToString(secret))
		app.logger.Warn("JWT_SECRET not set, using a per-process secret; tokens will not survive a restart")
	}

	signer, err := jwtx.NewHS256(secret, app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("failed to initialize jwt signer: %w", err)
	}
	app.signer = signer
	return nil
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(app.cfg.DatabaseFile)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.db = db

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func (app *Application) initMailer() error {
	if app.mailer != nil {
		return nil
	}
	switch app.cfg.MailDriver {
	case MailSMTP:
		sender, err := mail.NewSMTPSender(mail.SMTPConfig{
			Host:     app.cfg.EmailHost,
			Port:     app.cfg.EmailPort,
			Username: app.cfg.EmailUser,
			Password: app.cfg.EmailPass,
			From:     app.cfg.EmailFrom,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize mailer: %w", err)
		}
		app.mailer = sender
	default:
		app.logger.Warn("mail driver is log, OTP codes will be written to the log")
		app.mailer = mail.LogSender{Logger: app.logger}
	}
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := service.NewMetrics(app.registry)

	app.hasher = cryptox.NewHasher(app.cfg.BcryptCost)
	tokens := &service.TokenIssuer{
		Signer:    app.signer,
		AccessTTL: jwtx.DefaultAccessTokenTTL,
	}

	app.federationService = &service.FederationService{Store: app.db}
	app.authService = &service.AuthService{
		Store:  app.db,
		Hasher: app.hasher,
		Tokens: tokens,
		Ledger: &service.RefreshLedger{Store: app.db, Hasher: app.hasher},
		OTP:    &service.OTPService{Store: app.db, Hasher: app.hasher},

		Federation: app.federationService,
		Mailer:     app.mailer,
		Metrics:    metrics,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.Metrics = metrics

	app.stateCodec = &oauth.StateCodec{Signer: app.signer, TTL: jwtx.DefaultStateTTL}
	app.providers = app.initProviders()
}

// initProviders builds the OAuth providers that have credentials configured.
func (app *Application) initProviders() oauth.Registry {
	var providers []oauth.Provider

	google := oauth.Config{
		ClientID:     app.cfg.GoogleClientID,
		ClientSecret: app.cfg.GoogleClientSecret,
		RedirectURL:  app.cfg.PublicBaseURL + "/auth/google/callback",
	}
	if google.Enabled() {
		providers = append(providers, oauth.NewGoogle(google))
	}

	github := oauth.Config{
		ClientID:     app.cfg.GitHubClientID,
		ClientSecret: app.cfg.GitHubClientSecret,
		RedirectURL:  app.cfg.PublicBaseURL + "/auth/github/callback",
	}
	if github.Enabled() {
		providers = append(providers, oauth.NewGitHub(github))
	}

	for _, p := range providers {
		app.logger.Info("oauth provider enabled", "provider", p.Name())
	}
	return oauth.NewRegistry(providers...)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.authService.Tokens,
		BuildVersion,
		app.db,
		app.logger,
		httpx.NewMetrics(app.registry, "auth"),
		app.cfg.RateLimits,
	)
	router.Use(httpx.CORS(httpx.CORSConfig{
		AllowedOrigins:   app.cfg.CORSOrigins,
		AllowCredentials: true,
	}))

	// Wire handlers to router
	router.Auth = &httpapi.AuthHandler{Auth: app.authService}
	router.OAuth = &httpapi.OAuthHandler{
		Auth:        app.authService,
		Federation:  app.federationService,
		Providers:   app.providers,
		State:       app.stateCodec,
		FrontendURL: app.cfg.FrontendURL,
	}
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
