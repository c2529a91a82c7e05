package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Engine runs one reminder scan pass over the appointment store.
// All collaborators are injected; "now" is an explicit parameter so
// boundary conditions are testable with fixed instants.
type Engine struct {
	source Source
	ledger Ledger
	sender Sender
	loc    *time.Location
	logger *slog.Logger
}

// NewEngine creates an Engine. loc is the service timezone used to
// resolve appointment instants and calendar bounds.
func NewEngine(source Source, ledger Ledger, sender Sender, loc *time.Location, logger *slog.Logger) *Engine {
	return &Engine{
		source: source,
		ledger: ledger,
		sender: sender,
		loc:    loc,
		logger: logger,
	}
}

// RunScan fetches candidate appointments and dispatches every due,
// not-yet-sent reminder. Per-appointment failures are logged and
// accumulated; only a failure of the candidate fetch itself aborts
// the scan.
func (e *Engine) RunScan(ctx context.Context, now time.Time) (ScanResult, error) {
	start := time.Now()
	var res ScanResult

	today := now.In(e.loc)
	from := today.Format(dateLayout)
	to := today.AddDate(0, 0, LookaheadDays).Format(dateLayout)

	appointments, err := e.source.ListScheduled(ctx, from, to)
	if err != nil {
		return res, fmt.Errorf("list scheduled appointments: %w", err)
	}
	res.Scanned = len(appointments)

	for _, appt := range appointments {
		e.processAppointment(ctx, now, appt, &res)
	}

	res.Duration = time.Since(start)
	e.logger.Info("Reminder scan complete", "summary", res.Summary())
	return res, nil
}

func (e *Engine) processAppointment(ctx context.Context, now time.Time, appt Appointment, res *ScanResult) {
	at, err := ResolveInstant(appt.Date, appt.ClockTime, e.loc)
	if err != nil {
		e.logger.Warn("Skipping unparseable appointment",
			"appointment_id", appt.ID, "error", err)
		res.Errors = append(res.Errors, fmt.Sprintf("appointment %s: %v", appt.ID, err))
		return
	}

	hours := HoursUntil(at, now)
	if hours < 0 {
		res.SkippedPast++
		return
	}

	kinds := Classify(hours)
	if len(kinds) == 0 {
		return
	}

	user, err := e.source.GetUser(ctx, appt.UserID)
	if err != nil {
		e.logger.Warn("User lookup failed",
			"appointment_id", appt.ID, "user_id", appt.UserID, "error", err)
		res.Errors = append(res.Errors, fmt.Sprintf("appointment %s: user lookup: %v", appt.ID, err))
		return
	}
	if user == nil || user.FCMToken == "" {
		e.logger.Warn("No device token for appointment owner",
			"appointment_id", appt.ID, "user_id", appt.UserID)
		res.SkippedNoUser++
		return
	}

	for _, kind := range kinds {
		dispatched, err := e.dispatch(ctx, now, appt, user, kind)
		if err != nil {
			e.logger.Warn("Reminder dispatch failed",
				"appointment_id", appt.ID, "kind", kind, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("appointment %s %s: %v", appt.ID, kind, err))
			continue
		}
		if dispatched {
			res.Sent++
		}
	}
}

// dispatch sends one reminder unless the ledger already has a marker,
// then records the marker. A send failure leaves no marker so the next
// in-window pass retries. Returns whether a push actually went out.
func (e *Engine) dispatch(ctx context.Context, now time.Time, appt Appointment, user *User, kind Kind) (bool, error) {
	sent, err := e.ledger.WasSent(ctx, appt.ID, kind)
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	if sent {
		return false, nil
	}

	title, body := buildMessage(appt, kind)
	data := map[string]string{
		"type": "appointment_reminder",
		"appointmentId": appt.ID,
		"reminderType": string(kind),
	}

	if err := e.sender.SendMulti(ctx, []string{user.FCMToken}, title, body, data); err != nil {
		return false, fmt.Errorf("send: %w", err)
	}

	if err := e.ledger.Record(ctx, appt.ID, kind, now); err != nil {
		// The push went out but the marker write failed; the next pass
		// may send a duplicate. Best-effort idempotency accepts this.
		return true, fmt.Errorf("record marker after send: %w", err)
	}
	return true, nil
}

// --------------------------------------------------------------------------
// Message text
// --------------------------------------------------------------------------

func buildMessage(appt Appointment, kind Kind) (title, body string) {
	clock := appt.ClockTime
	if clock == "" {
		clock = "00:00"
	}
	switch kind {
	case Kind1Hour:
		title = "Appointment Starting Soon"
		body = fmt.Sprintf("Your appointment for vehicle %s starts in about an hour, at %s.",
			appt.PlateNumber, clock)
	default:
		title = "Appointment Reminder"
		body = fmt.Sprintf("Your appointment for vehicle %s is tomorrow at %s.",
			appt.PlateNumber, clock)
	}
	return title, body
}
