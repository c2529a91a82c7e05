package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sweeper retires dedup markers past the retention threshold. Runs
// daily; a failed sweep is retried by the next run since stale markers
// stay older than every later threshold.
type Sweeper struct {
	ledger    Ledger
	retention time.Duration
	logger    *slog.Logger
}

// NewSweeper creates a Sweeper with the given retention. Zero retention
// falls back to the default RetentionDays.
func NewSweeper(ledger Ledger, retention time.Duration, logger *slog.Logger) *Sweeper {
	if retention <= 0 {
		retention = RetentionDays * 24 * time.Hour
	}
	return &Sweeper{ledger: ledger, retention: retention, logger: logger}
}

// RunSweep deletes every marker older than now minus the retention
// period. A store failure aborts the run and propagates.
func (s *Sweeper) RunSweep(ctx context.Context, now time.Time) (SweepResult, error) {
	start := time.Now()
	var res SweepResult

	threshold := now.Add(-s.retention)
	deleted, err := s.ledger.PurgeOlderThan(ctx, threshold)
	if err != nil {
		return res, fmt.Errorf("purge dedup markers: %w", err)
	}

	res.Deleted = deleted
	res.Duration = time.Since(start)
	s.logger.Info("Retention sweep complete", "summary", res.Summary())
	return res, nil
}
