// Command remindctl runs reminder jobs as one-shot CLI invocations, for
// deployments that drive the cadence from an external cron instead of
// the in-process trigger.
//
// Usage:
//
//	remindctl scan
//	remindctl sweep
//	remindctl test --user <id>
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/76ahmad/DRVN/internal/config"
	"github.com/76ahmad/DRVN/internal/db"
	"github.com/76ahmad/DRVN/internal/notify"
	"github.com/76ahmad/DRVN/internal/reminder"
	"github.com/76ahmad/DRVN/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "remindctl",
		Short: "DRVN reminder jobs CLI",
	}

	root.AddCommand(scanCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(testCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// runWithDeps loads config, opens the pool, and hands both to fn.
func runWithDeps(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

// --------------------------------------------------------------------------
// scan command
// --------------------------------------------------------------------------

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one reminder scan pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithDeps(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				loc, err := time.LoadLocation(cfg.Timezone)
				if err != nil {
					return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
				}
				sender, err := notify.NewFCMSender(ctx, cfg.FCMCredentialsFile, logger)
				if err != nil {
					return err
				}
				if sender == nil {
					return fmt.Errorf("FIREBASE_CREDENTIALS_FILE is required for scan")
				}

				st := store.New(pool.Pool)
				engine := reminder.NewEngine(st, st, sender, loc, logger)
				res, err := engine.RunScan(ctx, time.Now())
				if err != nil {
					return err
				}
				logger.Info("Scan finished", "summary", res.Summary())
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// sweep command
// --------------------------------------------------------------------------

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Purge dedup markers past the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithDeps(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				st := store.New(pool.Pool)
				retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
				sweeper := reminder.NewSweeper(st, retention, logger)
				res, err := sweeper.RunSweep(ctx, time.Now())
				if err != nil {
					return err
				}
				logger.Info("Sweep finished", "summary", res.Summary())
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// test command
// --------------------------------------------------------------------------

func testCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a test push to one user, bypassing the dedup ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithDeps(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				sender, err := notify.NewFCMSender(ctx, cfg.FCMCredentialsFile, logger)
				if err != nil {
					return err
				}
				if sender == nil {
					return fmt.Errorf("FIREBASE_CREDENTIALS_FILE is required for test")
				}

				st := store.New(pool.Pool)
				user, err := st.GetUser(ctx, userID)
				if err != nil {
					return err
				}
				if user == nil || user.FCMToken == "" {
					return fmt.Errorf("user %s has no registered device", userID)
				}

				err = sender.SendMulti(ctx, []string{user.FCMToken},
					"DRVN Test Notification", "Push notifications are working.",
					map[string]string{"type": "test"})
				if err != nil {
					return err
				}
				logger.Info("Test notification sent", "user_id", userID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "target user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
