package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/restockd/restockd/internal/engine"
	"github.com/restockd/restockd/internal/notify"
	"github.com/restockd/restockd/internal/store"
)

var checkDryRun bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one stock check and exit",
	Long: "Runs a single stock check against all configured retailers and\n" +
		"sends the report to Telegram. With --dry-run the report is printed\n" +
		"to stdout instead of being sent.",
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false,
		"print the report instead of notifying")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	st, err := store.NewPostgresStore(ctx, cfg.Database.DSN(),
		store.WithPoolSize(int32(cfg.Database.PoolSize)),
	)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer st.Close()

	notifier := buildNotifier(cfg, logger)
	if checkDryRun {
		notifier = notify.NewNoOpNotifier(logger)
	}

	eng := engine.New(st, buildCheckers(cfg), notifier, cfg.Pincodes,
		engine.WithLogger(logger),
	)

	res, err := eng.RunCheck(ctx)
	if err != nil {
		return err
	}

	if checkDryRun {
		fmt.Println(res.Report)
	}

	logger.Info("check finished", "found", res.Found())
	return nil
}
