package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daily-reward-system/handlers"
	"daily-reward-system/middleware"
	"daily-reward-system/repository"
	"daily-reward-system/services"
	"daily-reward-system/utils"
	"daily-reward-system/workers"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. The schema is migrated on start, TIERS_SEED_FILE is
applied when set, and the ledger export job is scheduled when R2 is
configured.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadRuntime("api")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	store := repository.NewGormStore(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := services.NewMetrics(registry)

	tokens, err := services.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}
	accounts := services.NewAccountService(store, tokens, metrics, log)
	catalog := services.NewCatalogService(store, log)
	engine := services.NewClaimEngine(store,
		services.WithWindow(cfg.ClaimWindow),
		services.WithMetrics(metrics),
		services.WithLogger(log),
	)

	if cfg.TiersSeedFile != "" {
		seed, err := services.LoadTierSeedFile(cfg.TiersSeedFile)
		if err != nil {
			return err
		}
		created, err := catalog.SeedTiers(ctx, seed)
		if err != nil {
			return fmt.Errorf("seed tiers: %w", err)
		}
		log.Info("reward tiers seeded", "file", cfg.TiersSeedFile, "created", created)
	}

	if cfg.R2.Enabled() {
		uploader, err := utils.NewR2Uploader(ctx, cfg.R2)
		if err != nil {
			return err
		}
		exporter := workers.NewLedgerExporter(store.Claims(), uploader, time.Now().Add(-cfg.ExportInterval-cfg.ExportSettleLag), log)
		exporter.SetSettleLag(cfg.ExportSettleLag)
		if _, err := services.StartScheduler(ctx, cfg.ExportInterval, log, exporter); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		log.Info("ledger export scheduled", "every", cfg.ExportInterval.String(), "bucket", cfg.R2.Bucket)
	} else {
		log.Warn("R2 not configured, ledger export disabled")
	}

	app := handlers.NewApp(handlers.Deps{
		Engine:         engine,
		Catalog:        catalog,
		Accounts:       accounts,
		Logger:         log,
		AllowedOrigins: cfg.AllowedOrigins,
		LoginLimit: middleware.RateLimit{
			RequestsPerMinute: cfg.LoginRatePerMinute,
			Burst:             cfg.LoginBurst,
		},
		MetricsToken: cfg.MetricsToken,
		Gatherer:     registry,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Addr())
	}()

	log.Info("server running", "addr", cfg.Addr(), "claim_window", cfg.ClaimWindow.String(), "db_driver", cfg.DBDriver)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Warn("server shutdown", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

// shutdownContext is used by maintenance commands that do one bounded unit
// of work.
func shutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
