package bootstrap

import (
	"context"
	"fmt"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/api"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/api/handler"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/githubfetch"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/pkg/config"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/pkg/logger"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/pkg/postgres"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/repository"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/service"
)

type Application struct {
	Config   *config.Config
	Logger   *logger.Logger
	Postgres *postgres.Connection
	Migrator *postgres.Migrator

	ApplicationRepo repository.ApplicationRepository
	DeploymentRepo  repository.DeploymentRepository
	SnapshotRepo    repository.SnapshotRepository
	RunRepo         repository.RunRepository

	Fetcher *githubfetch.Client

	ApplicationService  *service.ApplicationService
	VerificationService *service.VerificationService

	ApplicationHandler *handler.ApplicationHandler
	DeploymentHandler  *handler.DeploymentHandler

	HTTPServer *api.HTTPServer
}

func New() (*Application, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: cfg.LogAddSource,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	pg, err := postgres.New(log, &postgres.Config{
		Host:              cfg.DatabaseHost,
		Port:              cfg.DatabasePort,
		Username:          cfg.DatabaseUser,
		Password:          cfg.DatabasePassword,
		Database:          cfg.DatabaseName,
		Schema:            cfg.DatabaseSchema,
		SSLMode:           cfg.DatabaseSSLMode,
		MaxConns:          cfg.DatabaseMaxConns,
		MinConns:          cfg.DatabaseMinConns,
		MaxConnLifetime:   cfg.DatabaseMaxConnLifetime,
		MaxConnIdleTime:   cfg.DatabaseMaxConnIdleTime,
		HealthCheckPeriod: cfg.DatabaseHealthCheckPeriod,
		ConnectTimeout:    cfg.DatabaseConnectTimeout,
		AcquireTimeout:    cfg.DatabaseAcquireTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection: %w", err)
	}

	return &Application{
		Config:   cfg,
		Logger:   log,
		Postgres: pg,
	}, nil
}

func (app *Application) Init(ctx context.Context) error {
	app.Logger.Info("initializing application")

	if err := app.Postgres.Connect(ctx); err != nil {
		return fmt.Errorf("postgres connection failed: %w", err)
	}

	app.Migrator = postgres.NewMigrator(app.Postgres.Pool(), &postgres.MigrationConfig{
		Timeout:   app.Config.DatabaseMigrationTimeout,
		TableName: app.Config.DatabaseMigrationTable,
		Enabled:   app.Config.DatabaseMigrationEnabled,
	}, app.Logger)

	if err := app.Migrator.RunMigrations(ctx); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}

	app.ApplicationRepo = repository.NewApplicationRepo(app.Postgres.Pool(), app.Logger)
	app.DeploymentRepo = repository.NewDeploymentRepo(app.Postgres.Pool(), app.Logger)
	app.SnapshotRepo = repository.NewSnapshotRepo(app.Postgres.Pool(), app.Logger)
	app.RunRepo = repository.NewRunRepo(app.Postgres.Pool(), app.Logger)

	fetcher, err := githubfetch.New(githubfetch.Config{
		Token:         app.Config.GithubToken,
		BaseURL:       app.Config.GithubBaseURL,
		SchemaVersion: app.Config.SnapshotSchemaVersion,
	}, app.SnapshotRepo, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create github client: %w", err)
	}
	app.Fetcher = fetcher

	app.ApplicationService = service.NewApplicationService(app.ApplicationRepo, app.Logger)
	app.VerificationService = service.NewVerificationService(
		app.ApplicationRepo,
		app.DeploymentRepo,
		app.RunRepo,
		app.Fetcher,
		app.Logger,
	)

	app.ApplicationHandler = handler.NewApplicationHandler(
		app.ApplicationService,
		app.VerificationService,
		handler.ApplicationDefaults{
			BaseBranch:     app.Config.DefaultBaseBranch,
			AuditStartYear: app.Config.DefaultAuditStartYear,
		},
		app.Logger,
	)
	app.DeploymentHandler = handler.NewDeploymentHandler(
		app.VerificationService,
		app.DeploymentRepo,
		app.Logger,
	)

	serverConfig := &api.ServerConfig{
		Host:         app.Config.ServerHost,
		Port:         app.Config.ServerPort,
		ReadTimeout:  app.Config.ServerReadTimeout,
		WriteTimeout: app.Config.ServerWriteTimeout,
		IdleTimeout:  app.Config.ServerIdleTimeout,
	}

	app.HTTPServer = api.NewHTTPServer(
		serverConfig,
		app.ApplicationHandler,
		app.DeploymentHandler,
		app.Health,
		app.Logger,
	)

	if err := app.HTTPServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	app.Logger.Info("application initialized successfully")
	return nil
}

func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("shutting down application")

	if app.HTTPServer != nil {
		if err := app.HTTPServer.Stop(ctx); err != nil {
			app.Logger.Error("error stopping http server", "error", err)
		}
	}

	app.Postgres.Close()

	app.Logger.Info("application shutdown completed")
	return nil
}

func (app *Application) Health(ctx context.Context) error {
	if err := app.Postgres.Health(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	if err := app.Migrator.Health(ctx); err != nil {
		return fmt.Errorf("migrator health check failed: %w", err)
	}
	return nil
}
