// Package schedule drives the reminder engine and retention sweeper on
// cron cadences. The engine itself never reads a clock; every job
// invocation passes the current instant explicitly.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/76ahmad/DRVN/internal/reminder"
)

// Trigger wraps a cron runner for the periodic scan and sweep jobs.
type Trigger struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewTrigger creates a stopped Trigger. Call Start after registering jobs.
func NewTrigger(logger *slog.Logger) *Trigger {
	// Standard 5-field cron parser (min, hour, dom, month, dow) with
	// panic recovery so one bad job cannot kill the runner.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Trigger{cron: c, logger: logger}
}

// AddScan schedules the reminder scan on the given cron expression.
func (t *Trigger) AddScan(expr string, engine *reminder.Engine) error {
	_, err := t.cron.AddFunc(expr, func() {
		if _, err := engine.RunScan(context.Background(), time.Now()); err != nil {
			t.logger.Error("Scheduled reminder scan failed", "error", err)
		}
	})
	return err
}

// AddSweep schedules the retention sweep on the given cron expression.
func (t *Trigger) AddSweep(expr string, sweeper *reminder.Sweeper) error {
	_, err := t.cron.AddFunc(expr, func() {
		if _, err := sweeper.RunSweep(context.Background(), time.Now()); err != nil {
			t.logger.Error("Scheduled retention sweep failed", "error", err)
		}
	})
	return err
}

// Start launches the cron runner.
func (t *Trigger) Start() {
	t.cron.Start()
}

// Stop stops the cron runner and waits for running jobs to finish.
func (t *Trigger) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
}
