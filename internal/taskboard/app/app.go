package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpapi "github.com/aussiebroadwan/taskboard/internal/taskboard/http"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/metrics"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store/drivers/postgres"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store/drivers/sqlite"
	"github.com/aussiebroadwan/taskboard/pkg/cryptox"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X ...".
var BuildVersion = "v0.1.0"

const (
	jwtSecretBytes = 48
	pepperBytes    = 32
	jwtLeeway      = 5 * time.Second
)

// Application owns the service's dependencies and their lifecycle.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	hasher  *cryptox.Hasher
	access  *service.AccessIssuer
	metrics *metrics.Metrics

	sessionService      *service.SessionService
	accountService      *service.AccountService
	taskService         *service.TaskService
	housekeepingService *service.HousekeepingService // nil when disabled

	server *http.Server
	router *httpapi.Router
}

// New validates cfg and builds every dependency. Nothing is listening yet.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: cfg.ServiceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCrypto(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler is the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run serves until ctx is cancelled or the server fails, then shuts down.
func (app *Application) Run(ctx context.Context) error {
	app.housekeepingService.Start()

	app.logger.Info("taskboard starting",
		"addr", app.cfg.HTTPAddr,
		"db_driver", app.cfg.DBDriver,
		"refresh_rotate", app.cfg.RefreshRotate,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// Shutdown drains in-flight requests, stops housekeeping and closes the
// database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down taskboard...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "err", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "err", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "err", err)
		return err
	}

	app.logger.Info("taskboard stopped")
	return nil
}

func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.DBDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqlite.DSN(app.cfg.DBFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.db = db
	app.logger.Info("database migrations applied", "driver", app.cfg.DBDriver)
	return nil
}

// initCrypto loads or generates the signing secret and pepper, then builds
// the hasher and the access token issuer.
func (app *Application) initCrypto() error {
	var pepper string
	if app.cfg.PepperFile != "" {
		p, err := cryptox.LoadOrGenerateSecret(app.cfg.PepperFile, pepperBytes)
		if err != nil {
			return fmt.Errorf("failed to load pepper: %w", err)
		}
		pepper = p
	}

	hasher, err := cryptox.NewHasher(cryptox.HasherConfig{
		Algorithm:        cryptox.Algorithm(app.cfg.HashAlgorithm),
		BcryptCost:       app.cfg.BcryptCost,
		Argon2Iterations: uint32(app.cfg.Argon2Iterations),
		Argon2MemoryKiB:  uint32(app.cfg.Argon2MemoryKiB),
		Pepper:           pepper,
	})
	if err != nil {
		return fmt.Errorf("failed to configure password hasher: %w", err)
	}
	app.hasher = hasher

	secret := app.cfg.JWTSecret
	if secret == "" {
		secret, err = cryptox.LoadOrGenerateSecret(app.cfg.JWTSecretFile, jwtSecretBytes)
		if err != nil {
			return fmt.Errorf("failed to load JWT secret: %w", err)
		}
	}

	signer, err := jwtx.NewSignerHS256([]byte(secret))
	if err != nil {
		return fmt.Errorf("failed to create JWT signer: %w", err)
	}
	verifier, err := jwtx.NewVerifierHS256([]byte(secret), jwtx.VerifyOptions{
		Issuer: app.cfg.JWTIssuer,
		Leeway: jwtLeeway,
	})
	if err != nil {
		return fmt.Errorf("failed to create JWT verifier: %w", err)
	}

	app.access = &service.AccessIssuer{
		Signer:   signer,
		Verifier: verifier,
		Issuer:   app.cfg.JWTIssuer,
		TTL:      app.cfg.AccessTTL,
	}

	app.logger.Info("credentials configured",
		"hash_algorithm", hasher.Algorithm(),
		"pepper", pepper != "",
	)
	return nil
}

func (app *Application) initServices() {
	var events service.EventRecorder
	if app.cfg.MetricsEnabled {
		app.metrics = metrics.New("taskboard")
		events = app.metrics
	}

	refresh := &service.RefreshManager{
		Repo:        app.db,
		Hasher:      app.hasher,
		TTL:         app.cfg.RefreshTTL,
		MaxSessions: app.cfg.MaxSessions,
	}

	app.sessionService = &service.SessionService{
		Store:  app.db,
		Hasher: app.hasher,
		Access: app.access,
		Tokens: refresh,
		Rotate: app.cfg.RefreshRotate,
		Events: events,
	}
	app.accountService = &service.AccountService{Store: app.db}
	app.taskService = &service.TaskService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.HousekeepingRetention,
	)
	if app.housekeepingService != nil && app.metrics != nil {
		app.housekeepingService.OnDeleted = app.metrics.RefreshTokensDeleted
	}
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(httpapi.Options{
		Verifier:     app.access.Verifier,
		Store:        app.db,
		Logger:       app.logger,
		BuildVersion: BuildVersion,
		Cookie: httpapi.CookieConfig{
			Name:   app.cfg.RefreshCookieName,
			Path:   app.cfg.RefreshCookiePath,
			Secure: app.cfg.RefreshCookieSecure,
			MaxAge: app.cfg.RefreshTTL,
		},
		CORSOrigins: app.cfg.CORSOrigins,
		RateLimits:  httpapi.DefaultRateLimits(),
		Metrics:     app.metrics,
	})

	router.SessionService = app.sessionService
	router.AccountService = app.accountService
	router.TaskService = app.taskService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
