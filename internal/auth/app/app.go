package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/tillworks/tillsuite/internal/auth/http"
	"github.com/tillworks/tillsuite/internal/auth/registry"
	"github.com/tillworks/tillsuite/internal/auth/service"
	"github.com/tillworks/tillsuite/internal/auth/store"
	"github.com/tillworks/tillsuite/internal/auth/store/drivers/sqlite"
	"github.com/tillworks/tillsuite/internal/tenant"
	"github.com/tillworks/tillsuite/pkg/jwtx"
	"github.com/tillworks/tillsuite/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application wires the auth service together: store, client registry,
// signer, services, and the HTTP surface.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	registry *registry.Registry
	signer   *jwtx.HS256

	authorizeService    *service.AuthorizeService
	tokenService        *service.TokenService
	userInfoService     *service.UserInfoService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tillsuite-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	reg, err := registry.Load(cfg.ClientsFile)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to load client registry: %w", err)
	}
	app.registry = reg

	signer, err := jwtx.NewHS256([]byte(cfg.JWTSecret), cfg.Issuer)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.signer = signer

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains the server, stops the sweeper, and closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initServices() {
	app.authorizeService = &service.AuthorizeService{
		Registry: app.registry,
		Store:    app.db,
		CodeTTL:  app.cfg.CodeTTL,
	}

	app.tokenService = &service.TokenService{
		Registry:   app.registry,
		Store:      app.db,
		Signer:     app.signer,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.userInfoService = &service.UserInfoService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	resolver := tenant.NewResolver(tenant.Config{
		Directory:   app.db.Tenants(),
		DevHosts:    app.cfg.DevHosts,
		PublicPaths: httpapi.PublicPaths,
	})
	access := tenant.NewAccessValidator(app.db.Tenants())

	router := httpapi.NewRouter(
		app.signer,
		app.cfg.Issuer,
		BuildVersion,
		app.db,
		resolver,
		access,
		app.logger,
	)

	router.AuthorizeService = app.authorizeService
	router.TokenService = app.tokenService
	router.UserInfoService = app.userInfoService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
