// Package reminder implements the appointment reminder engine: window
// classification, dedup-checked dispatch, and retention sweeping.
//
// Pipeline: fetch scheduled appointments → classify against reminder
// windows → consult the dedup ledger → dispatch push → record marker.
// A daily sweep retires markers past the retention threshold.
package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// LookaheadDays bounds the candidate fetch. Two days forward so a
	// midnight-adjacent appointment is never lost to date-string edges.
	LookaheadDays = 2

	// RetentionDays is how long a dispatch marker is kept before the
	// sweeper deletes it.
	RetentionDays = 30
)

// Reminder windows, as inclusive hour-offset ranges relative to the
// appointment instant. Ranges rather than points because the scan runs
// hourly and must not miss a mark that falls between two runs.
const (
	window24Min = 23.0
	window24Max = 25.0
	window1Min  = 0.5
	window1Max  = 1.5
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Kind identifies a reminder window.
type Kind string

const (
	Kind24Hour Kind = "24h"
	Kind1Hour  Kind = "1h"
)

// Appointment is a read-only snapshot from the appointment store.
// Date and ClockTime are kept as stored strings; ResolveInstant turns
// them into an absolute instant in the service timezone.
type Appointment struct {
	ID          string
	Date        string // "2006-01-02", possibly with an embedded time part
	ClockTime   string // "15:04" or "15:04:05"; empty means midnight
	UserID      string
	Status      string
	PlateNumber string
	OwnerName   string
}

// User is a read-only snapshot from the user store. FCMToken is empty
// when the user has no registered device.
type User struct {
	ID       string
	FCMToken string
}

// StatusScheduled is the only appointment status eligible for reminders.
const StatusScheduled = "scheduled"

// --------------------------------------------------------------------------
// Collaborator interfaces
// --------------------------------------------------------------------------

// Source is the appointment store as seen by the engine.
type Source interface {
	// ListScheduled returns appointments with status `scheduled` whose
	// date falls within [from, to] inclusive ("2006-01-02" strings).
	ListScheduled(ctx context.Context, from, to string) ([]Appointment, error)

	// GetUser returns the user by id, or nil when no such user exists.
	GetUser(ctx context.Context, id string) (*User, error)
}

// Ledger records which (appointment, kind) reminders have been dispatched.
type Ledger interface {
	// WasSent reports whether a marker exists for the pair.
	WasSent(ctx context.Context, appointmentID string, kind Kind) (bool, error)

	// Record upserts a marker. Last write wins; the value is only ever
	// inspected for age.
	Record(ctx context.Context, appointmentID string, kind Kind, sentAt time.Time) error

	// PurgeOlderThan deletes every marker sent before threshold and
	// returns the number deleted.
	PurgeOlderThan(ctx context.Context, threshold time.Time) (int64, error)
}

// Sender delivers push notifications to device tokens.
type Sender interface {
	SendMulti(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// --------------------------------------------------------------------------
// Results
// --------------------------------------------------------------------------

// ScanResult summarizes one engine pass.
type ScanResult struct {
	Scanned       int
	Sent          int
	SkippedPast   int
	SkippedNoUser int
	Errors        []string
	Duration      time.Duration
}

// Summary returns a one-line description for logs and HTTP responses.
func (r ScanResult) Summary() string {
	s := fmt.Sprintf("scanned=%d sent=%d skipped_past=%d skipped_no_user=%d duration=%s",
		r.Scanned, r.Sent, r.SkippedPast, r.SkippedNoUser, r.Duration.Round(time.Millisecond))
	if len(r.Errors) > 0 {
		s += fmt.Sprintf(" errors=%d [%s]", len(r.Errors), strings.Join(r.Errors, "; "))
	}
	return s
}

// SweepResult summarizes one retention sweep.
type SweepResult struct {
	Deleted  int64
	Duration time.Duration
}

// Summary returns a one-line description for logs and HTTP responses.
func (r SweepResult) Summary() string {
	return fmt.Sprintf("deleted=%d duration=%s", r.Deleted, r.Duration.Round(time.Millisecond))
}
