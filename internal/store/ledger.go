package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/76ahmad/DRVN/internal/reminder"
)

// WasSent reports whether a dispatch marker exists for the pair. The
// key is real columns (appointment_id, reminder_type), not a
// concatenated string, so ids containing delimiters cannot collide.
func (s *Store) WasSent(ctx context.Context, appointmentID string, kind reminder.Kind) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM reminder_log WHERE appointment_id = $1 AND reminder_type = $2`,
		appointmentID, string(kind),
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup check %s/%s: %w", appointmentID, kind, err)
	}
	return true, nil
}

// Record upserts a dispatch marker. Last write wins; the value is only
// ever inspected for age by the sweeper.
func (s *Store) Record(ctx context.Context, appointmentID string, kind reminder.Kind, sentAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reminder_log (appointment_id, reminder_type, sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (appointment_id, reminder_type)
		DO UPDATE SET sent_at = EXCLUDED.sent_at`,
		appointmentID, string(kind), sentAt,
	)
	if err != nil {
		return fmt.Errorf("record reminder marker %s/%s: %w", appointmentID, kind, err)
	}
	return nil
}

// PurgeOlderThan deletes every marker sent before threshold and returns
// the number of rows removed.
func (s *Store) PurgeOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM reminder_log WHERE sent_at < $1`, threshold)
	if err != nil {
		return 0, fmt.Errorf("purge reminder markers: %w", err)
	}
	return tag.RowsAffected(), nil
}
