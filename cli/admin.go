package cli

import (
	"fmt"
	"time"

	"daily-reward-system/models"
	"daily-reward-system/repository"
	"daily-reward-system/services"
	"daily-reward-system/utils"
	"daily-reward-system/workers"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedTiersCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(exportLedgerCmd)

	seedTiersCmd.Flags().StringP("file", "f", "", "TOML file with [[tier]] entries (defaults to TIERS_SEED_FILE)")
	promoteCmd.Flags().String("role", string(models.RoleAdmin), "Role to assign (admin or user)")
	exportLedgerCmd.Flags().Duration("since", 24*time.Hour, "Export claims recorded within this long before now")
}

// ─── migrate ────────────────────────────────────────────────────────────────

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime("migrate")
		if err != nil {
			return err
		}
		if _, err := openDatabase(cfg); err != nil {
			return err
		}
		log.Info("schema migrated", "db_driver", cfg.DBDriver)
		return nil
	},
}

// ─── seed-tiers ─────────────────────────────────────────────────────────────

var seedTiersCmd = &cobra.Command{
	Use:   "seed-tiers",
	Short: "Create reward tiers from a TOML file",
	Long: `Create reward tiers from a TOML file. Tiers whose index already exists
are left untouched, so the command can be re-run safely.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime("seed")
		if err != nil {
			return err
		}
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			file = cfg.TiersSeedFile
		}
		if file == "" {
			return fmt.Errorf("seed file required: daily-reward seed-tiers -f <file>")
		}

		seed, err := services.LoadTierSeedFile(file)
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}

		ctx, stop := shutdownContext(cmd.Context())
		defer stop()

		catalog := services.NewCatalogService(repository.NewGormStore(db), log)
		created, err := catalog.SeedTiers(ctx, seed)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d of %d tiers from %s\n", created, len(seed.Tiers), file)
		return nil
	},
}

// ─── promote ────────────────────────────────────────────────────────────────

var promoteCmd = &cobra.Command{
	Use:   "promote EMAIL",
	Short: "Change the role of a registered user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		switch models.UserRole(role) {
		case models.RoleAdmin, models.RoleUser:
		default:
			return fmt.Errorf("unknown role %q, expected admin or user", role)
		}

		cfg, log, err := loadRuntime("promote")
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}

		ctx, stop := shutdownContext(cmd.Context())
		defer stop()

		// no token manager needed, SetRole never issues tokens
		accounts := services.NewAccountService(repository.NewGormStore(db), nil, nil, log)
		user, err := accounts.SetRole(ctx, args[0], models.UserRole(role))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
		return nil
	},
}

// ─── export-ledger ──────────────────────────────────────────────────────────

var exportLedgerCmd = &cobra.Command{
	Use:   "export-ledger",
	Short: "Upload recent claim records to R2 as JSON lines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime("export")
		if err != nil {
			return err
		}
		if !cfg.R2.Enabled() {
			return fmt.Errorf("R2 is not configured: set CLOUDFLARE_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_ACCESS_KEY_SECRET and R2_BUCKET_NAME")
		}
		since, _ := cmd.Flags().GetDuration("since")

		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}

		ctx, stop := shutdownContext(cmd.Context())
		defer stop()

		uploader, err := utils.NewR2Uploader(ctx, cfg.R2)
		if err != nil {
			return err
		}

		to := time.Now().UTC()
		from := to.Add(-since)
		exporter := workers.NewLedgerExporter(repository.NewGormStore(db).Claims(), uploader, from, log)
		key, count, err := exporter.ExportWindow(ctx, from, to)
		if err != nil {
			return err
		}
		if count == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No claims in range, nothing uploaded")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d claims to %s\n", count, key)
		return nil
	},
}
