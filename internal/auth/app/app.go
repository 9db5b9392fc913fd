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

	httpapi "github.com/aussiebroadwan/agentauth/internal/auth/http"
	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/agentauth/internal/auth/store/drivers/redisstore"
	"github.com/aussiebroadwan/agentauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/agentauth/pkg/shield"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service and all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db    store.Store
	redis *redis.Client // nil with the memory token store
	keys  *Keys

	csrf    store.TokenStore
	links   store.TokenStore
	codes   store.TokenStore
	revoked store.RevocationSet

	providers map[string]*service.ProviderConfig

	// Services
	sessions            *service.SessionManager
	delegation          *service.DelegationService
	registry            *service.ToolRegistry
	tools               service.Executor
	metrics             *shield.MetricsBuffer // nil without shield
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized. Any
// configuration problem is returned here so the process exits before it
// starts listening.
func New(ctx context.Context, cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "agentauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	keys, err := DeriveKeys(cfg.Secret)
	if err != nil {
		return nil, err
	}
	app.keys = keys

	providers, err := LoadProviders(ctx, cfg.ProvidersFile, cfg.PublicURL)
	if err != nil {
		return nil, err
	}
	app.providers = providers

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initTokenStores(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler returns the root HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()
	if app.metrics != nil {
		app.metrics.Start()
	}

	app.logger.Info("agentauth starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"token_store", app.cfg.TokenStore,
		"providers", len(app.providers),
		"shield", app.metrics != nil,
	)

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

// Shutdown gracefully stops the server and background services, then
// releases the stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down agentauth...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	if app.metrics != nil {
		app.metrics.Stop(ctx)
	}

	return app.close()
}

// close releases the stores without touching the server or the
// background services.
func (app *Application) close() error {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("agentauth stopped")
	return nil
}

// initDatabase opens the user store and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

// initTokenStores selects the ephemeral token and revocation backend.
func (app *Application) initTokenStores(ctx context.Context) error {
	if app.cfg.TokenStore != TokenStoreRedis {
		app.csrf = memory.NewTokenStore()
		app.links = memory.NewTokenStore()
		app.codes = memory.NewTokenStore()
		app.revoked = memory.NewRevocationSet()
		app.logger.Warn("in-memory token store: one-time tokens do not survive restarts or span processes")
		return nil
	}

	client, err := redisstore.Connect(ctx, app.cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect token store: %w", err)
	}
	app.redis = client

	prefix := app.cfg.Redis.KeyPrefix
	app.csrf = redisstore.NewTokenStore(client, prefix, "csrf")
	app.links = redisstore.NewTokenStore(client, prefix, "link")
	app.codes = redisstore.NewTokenStore(client, prefix, "code")
	app.revoked = redisstore.NewRevocationSet(client, prefix)

	app.logger.Info("redis token store connected", "addr", app.cfg.Redis.Addr)
	return nil
}

// initServices builds the business logic services.
func (app *Application) initServices() {
	app.delegation = &service.DelegationService{
		Codec:   app.keys.Agent,
		Revoked: app.revoked,
	}

	app.sessions = &service.SessionManager{
		Codec: app.keys.Session,
		Users: &service.UserService{Store: app.db},
		OAuth: &service.OAuthNegotiator{
			CSRF:       app.csrf,
			HTTPClient: &http.Client{Timeout: 10 * time.Second},
		},
		MagicLinks: &service.MagicLinkService{Tokens: app.links},
		Codes:      &service.TwoFactorService{Tokens: app.codes, Issuer: "agentauth"},
		Mailer:     &service.LogMailer{Logger: app.logger},
		Delegation: app.delegation,
		Records:    app.db.Sessions(),
		SessionTTL: app.cfg.SessionTTL,
		Logger:     app.logger,
	}

	app.registry = service.NewToolRegistry(app.delegation, app.logger)
	app.tools = app.registry

	if app.cfg.ShieldEnabled() {
		client := shield.NewClient(app.cfg.ShieldURL, app.cfg.ShieldAPIKey)
		app.metrics = shield.NewMetricsBuffer(client, app.logger)
		app.tools = &service.ShieldedExecutor{
			Next:    app.registry,
			Shield:  client,
			Metrics: app.metrics,
			Logger:  app.logger,
		}
		app.logger.Info("tool calls gated by shield", "url", client.BaseURL)
	}

	sweepers := map[string]service.Sweeper{
		"csrf":        app.csrf,
		"magic_links": app.links,
		"codes":       app.codes,
		"revocations": app.revoked,
	}
	app.housekeepingService = service.NewHousekeepingService(
		sweepers,
		app.db.Sessions(),
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP builds the router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(httpapi.Options{
		Secure:            app.cfg.Secure(),
		SuccessURL:        app.cfg.SuccessURL,
		ErrorURL:          app.cfg.ErrorURL,
		ToolsAPIKey:       app.cfg.ToolsAPIKey,
		DelegationEnabled: app.cfg.DelegationEnabled,
		AuthLimit:         app.cfg.AuthLimit(),
		ToolLimit:         app.cfg.ToolLimit(),
		TrustedProxies:    app.cfg.Proxies(),
	}, BuildVersion, app.db, app.logger)

	router.Providers = app.providers
	router.Sessions = app.sessions
	router.Delegation = app.delegation
	router.Registry = app.registry
	router.Tools = app.tools
	if app.redis != nil {
		router.TokenStore = redisPinger{app.redis}
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

type redisPinger struct{ c *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }
