package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/config"
	inventorydomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/domain"
	inventoryrepo "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/repository"
	inventoryservice "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/service"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/migration"
	quotadomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
	quotarepo "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/repository"
	quotaservice "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/service"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/bytesize"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errLedgerMismatch = errors.New("item stock does not match ledger")

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type ctlApp struct {
	db  *gorm.DB
	log *zap.Logger
}

// newApp connects to the configured database. The caller must defer app.Close().
func newApp() (*ctlApp, error) {
	cfg := config.Load()
	log, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	conn, err := db.Open(db.ConfigFromApp(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &ctlApp{db: conn, log: log}, nil
}

func (a *ctlApp) Close() {
	_ = a.log.Sync()
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (a *ctlApp) quota() quotadomain.Service {
	return quotaservice.New(quotaservice.Params{DB: a.db, Log: a.log, Repo: quotarepo.Provide()})
}

func (a *ctlApp) inventory() (inventorydomain.Service, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	return inventoryservice.New(inventoryservice.Params{DB: a.db, Log: a.log, GenID: node, Repo: inventoryrepo.Provide()}), nil
}

var rootCmd = &cobra.Command{
	Use:           "eofficectl",
	Short:         "E-office maintenance commands",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := migration.Up(a.db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := migration.Down(a.db, steps); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
		return nil
	},
}

// quota command
var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Inspect and repair division storage quotas",
}

var quotaReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute used sizes from document allocations",
	RunE: func(cmd *cobra.Command, args []string) error {
		divisionID, _ := cmd.Flags().GetInt64("division")
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var results []quotadomain.ReconcileResult
		if divisionID > 0 {
			result, err := a.quota().Reconcile(cmd.Context(), divisionID)
			if err != nil {
				return err
			}
			results = append(results, result)
		} else if results, err = a.quota().ReconcileAll(cmd.Context()); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, result := range results {
			marker := "ok"
			if result.Drifted() {
				marker = "fixed"
			}
			fmt.Fprintf(out, "%-20d %-10s -> %-10s %s\n",
				result.DivisionID,
				bytesize.Format(result.Before),
				bytesize.Format(result.After),
				marker,
			)
		}
		return nil
	},
}

// stock command
var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Inspect item stock",
}

var stockVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Compare item stock with the transaction ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID, _ := cmd.Flags().GetInt64("item")
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		inventory, err := a.inventory()
		if err != nil {
			return err
		}
		var checks []inventorydomain.LedgerCheck
		if itemID > 0 {
			check, err := inventory.Verify(cmd.Context(), itemID)
			if err != nil {
				return err
			}
			checks = append(checks, check)
		} else if checks, err = inventory.VerifyAll(cmd.Context()); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		mismatches := 0
		for _, check := range checks {
			if check.Consistent() {
				continue
			}
			mismatches++
			fmt.Fprintf(out, "%-20d %-12s stock=%d ledger=%d\n", check.ItemID, check.Code, check.Stock, check.LedgerSum)
		}
		fmt.Fprintf(out, "%d item(s) checked, %d mismatch(es)\n", len(checks), mismatches)
		if mismatches > 0 {
			return errLedgerMismatch
		}
		return nil
	},
}

func init() {
	// migrate subcommands
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateDownCmd.Flags().IntP("steps", "n", 1, "Number of migrations to roll back")

	// quota subcommands
	quotaCmd.AddCommand(quotaReconcileCmd)
	quotaReconcileCmd.Flags().Int64P("division", "d", 0, "Reconcile a single division")

	// stock subcommands
	stockCmd.AddCommand(stockVerifyCmd)
	stockVerifyCmd.Flags().Int64P("item", "i", 0, "Verify a single item")

	// root commands
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(quotaCmd)
	rootCmd.AddCommand(stockCmd)
}
