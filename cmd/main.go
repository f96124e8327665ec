package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/bootstrap"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/config"
	cronpkg "github.com/sujansaitej/Buddhi-cloud-sub001/internal/cron"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/middleware"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/overlay"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/provider"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/reconcile"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/router"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "scheduled-tasks",
		Short:             "Scheduled-task gateway for the browser automation provider",
		PersistentPreRunE: initializeApp,
		RunE:              runServe,
		SilenceUsage:      true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and the resync job",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the overlay table",
		RunE:  runMigrate,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Run one overlay resync pass and print its stats",
		RunE:  runSync,
	})

	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err = newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	if cfg.Server.IsDevelopment() {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// wire builds the reconciliation service on top of the configured stores.
func wire() (*bootstrap.Stores, *reconcile.Orchestrator, error) {
	stores, err := bootstrap.OpenStores(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	if _, err := cfg.Provider.Credential(); err != nil {
		logger.Warn("BROWSER_USE_API_KEY is not configured, scheduled-task routes will answer 401")
	}

	client := provider.New(cfg.Provider, logger)
	tasks := reconcile.New(
		client,
		overlay.NewCache(stores.Overlay, logger),
		logger,
		reconcile.WithPageSize(cfg.Sync.PageSize),
	)
	return stores, tasks, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	stores, tasks, err := wire()
	if err != nil {
		return err
	}
	defer stores.Close()

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true

	idempotency := middleware.NewIdempotencyStore(stores.Redis, cfg.Store.IdempotencyTTL)
	router.Setup(e, cfg, tasks, idempotency, logger)

	// --- Cron Scheduler ---
	scheduler := cronpkg.New(cfg.Sync, tasks, logger)
	if err := scheduler.Start(); err != nil {
		return err
	}

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting scheduled-task server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Stop cron
	ctx := scheduler.Stop()
	<-ctx.Done()

	// Stop HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	switch cfg.Store.Driver {
	case config.DriverMySQL, config.DriverSQLite:
	default:
		logger.Info("Nothing to migrate", zap.String("driver", cfg.Store.Driver))
		return nil
	}

	db, err := config.NewDatabase(cfg.Store.Driver, &cfg.Database, logger)
	if err != nil {
		return err
	}
	if err := bootstrap.Migrate(db); err != nil {
		return err
	}
	logger.Info("Schema migration completed")
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	stores, tasks, err := wire()
	if err != nil {
		return err
	}
	defer stores.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := tasks.Resync(ctx)
	fmt.Fprintf(cmd.OutOrStdout(),
		"pages=%d seen=%d seeded=%d pruned=%d complete=%t duration=%s\n",
		stats.Pages, stats.Seen, stats.Seeded, stats.Pruned, stats.Complete, stats.Duration.Round(time.Millisecond))
	return err
}
