// Package cli holds the daily-reward command tree.
package cli

import (
	"fmt"
	"os"

	"daily-reward-system/config"

	"github.com/spf13/cobra"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:   "daily-reward",
	Short: "Daily login reward backend",
	Long: `Daily login reward backend.
Users claim one reward per claim window and walk an admin-managed,
cyclic catalog of reward tiers. Run "serve" for the HTTP API, or use the
maintenance commands below against the same database.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadDotEnv(envFiles...)
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Env file(s) to load before reading the environment (default .env)")
}

// Execute runs the command named on the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
