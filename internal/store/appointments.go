package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/76ahmad/DRVN/internal/reminder"
)

// ListScheduled returns appointments with status `scheduled` whose date
// falls within [from, to] inclusive. Dates are stored as "2006-01-02"
// strings so the comparison is lexicographic, matching calendar order.
func (s *Store) ListScheduled(ctx context.Context, from, to string) ([]reminder.Appointment, error) {
	rows, err := s.pool.Query(ctx, "list_scheduled_appointments", from, to)
	if err != nil {
		return nil, fmt.Errorf("list scheduled appointments: %w", err)
	}
	defer rows.Close()

	var appointments []reminder.Appointment
	for rows.Next() {
		var a reminder.Appointment
		var clock *string
		if err := rows.Scan(&a.ID, &a.Date, &clock, &a.UserID, &a.Status, &a.PlateNumber, &a.OwnerName); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		if clock != nil {
			a.ClockTime = *clock
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

// GetUser returns the user by id, or nil when no row exists. A missing
// user is a skip condition for the engine, not an error.
func (s *Store) GetUser(ctx context.Context, id string) (*reminder.User, error) {
	u := &reminder.User{}
	var token *string
	err := s.pool.QueryRow(ctx, "user_by_id", id).Scan(&u.ID, &token)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	if token != nil {
		u.FCMToken = *token
	}
	return u, nil
}
