package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/JonMunkholm/nthmin/internal/audit"
	"github.com/JonMunkholm/nthmin/internal/logging"
	"github.com/spf13/cobra"
)

// auditTimeout bounds each audit maintenance command.
const auditTimeout = 30 * time.Second

var (
	auditLimit     int
	auditOlderThan time.Duration
)

// auditCmd groups audit log maintenance
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and prune the lookup audit log",
	Long: `Commands for the PostgreSQL audit log. DATABASE_URL (or DB_URL) must be set.

Available subcommands:
  recent - Print the latest lookups as JSON lines
  prune  - Delete lookups older than a given age`,
}

var auditRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Print the latest lookups as JSON lines",
	Args:  cobra.NoArgs,
	RunE:  runAuditRecent,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete lookups older than --older-than",
	Args:  cobra.NoArgs,
	RunE:  runAuditPrune,
}

func init() {
	auditRecentCmd.Flags().IntVar(&auditLimit, "limit", audit.DefaultRecentLimit, "number of records to print")
	auditPruneCmd.Flags().DurationVar(&auditOlderThan, "older-than", 30*24*time.Hour, "age of the oldest record to keep")

	auditCmd.AddCommand(auditRecentCmd, auditPruneCmd)
	rootCmd.AddCommand(auditCmd)
}

// openStore connects to the configured audit database.
func openStore(ctx context.Context) (*audit.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logging.SetDefault(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	if !cfg.Database.Enabled() {
		return nil, errors.New("audit log is not configured: set DATABASE_URL")
	}
	return audit.Open(ctx, cfg.Database)
}

func runAuditRecent(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), auditTimeout)
	defer cancel()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(ctx, auditLimit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	if auditOlderThan <= 0 {
		return errors.New("--older-than must be positive")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), auditTimeout)
	defer cancel()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.Prune(ctx, time.Now().Add(-auditOlderThan))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d audit records\n", removed)
	return err
}
