// Package server initializes and runs the asset coordinator service: it
// opens the registry database, runs migrations, wires the object store,
// permission and rate-limit state into a coordinator, and drives the
// periodic maintenance loops until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prtfnx/ttrpg-system-sub001/internal/logging"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/config"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/coordinator"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/objectstore"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/permissions"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/ratelimit"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/repositories/repomanager"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	coordinator *coordinator.Coordinator
	permissions *permissions.Manager
}

func NewApp(cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := objectstore.NewS3Store(context.Background(), objectstore.S3Config{
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
		Timeout:      cfg.BackendTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	perms := permissions.NewManager(cfg.PermissiveSessions)
	limiter := ratelimit.NewLimiter()
	coord := coordinator.New(db, repos, store, perms, limiter, cfg, logger)

	if cfg.PermissiveSessions {
		logger.Warn(context.Background(), "permissive sessions enabled; do not use in production")
	}

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		coordinator: coord,
		permissions: perms,
	}, nil
}

// Coordinator exposes the asset service to the session-protocol layer.
func (app *App) Coordinator() *coordinator.Coordinator {
	return app.coordinator
}

// Permissions exposes role management to the session-protocol layer.
func (app *App) Permissions() *permissions.Manager {
	return app.permissions
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) runSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(app.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.coordinator.SweepStalePendingUploads(app.config.PendingMaxAge)
		}
	}
}

func (app *App) runReconcileLoop(ctx context.Context) {
	ticker := time.NewTicker(app.config.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.coordinator.ReconcilePhantomAssets(ctx, "", app.config.ReconcileMaxAge); err != nil {
				app.logger.Error(ctx, "reconcile pass failed", "error", err.Error())
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting asset coordinator")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runSweepLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runReconcileLoop(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
	app.logger.Info(ctx, "asset coordinator stopped")
}
