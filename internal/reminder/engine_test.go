package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type fakeSource struct {
	appointments []Appointment
	users        map[string]*User
	listErr      error
}

func (f *fakeSource) ListScheduled(ctx context.Context, from, to string) ([]Appointment, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Appointment
	for _, a := range f.appointments {
		datePart := a.Date
		if len(datePart) > 10 {
			datePart = datePart[:10]
		}
		if a.Status == StatusScheduled && datePart >= from && datePart <= to {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeSource) GetUser(ctx context.Context, id string) (*User, error) {
	return f.users[id], nil
}

type markerKey struct {
	id   string
	kind Kind
}

type fakeLedger struct {
	markers     map[markerKey]time.Time
	recordCalls map[markerKey]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		markers:     make(map[markerKey]time.Time),
		recordCalls: make(map[markerKey]int),
	}
}

func (f *fakeLedger) WasSent(ctx context.Context, id string, kind Kind) (bool, error) {
	_, ok := f.markers[markerKey{id, kind}]
	return ok, nil
}

func (f *fakeLedger) Record(ctx context.Context, id string, kind Kind, sentAt time.Time) error {
	k := markerKey{id, kind}
	f.recordCalls[k]++
	f.markers[k] = sentAt
	return nil
}

func (f *fakeLedger) PurgeOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	var deleted int64
	for k, sentAt := range f.markers {
		if sentAt.Before(threshold) {
			delete(f.markers, k)
			deleted++
		}
	}
	return deleted, nil
}

type sendCall struct {
	tokens []string
	title  string
	body   string
	data   map[string]string
}

type fakeSender struct {
	calls []sendCall
	err   error
}

func (f *fakeSender) SendMulti(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, sendCall{tokens: tokens, title: title, body: body, data: data})
	return nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// now is a Tuesday noon; appointments are placed relative to it.
var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestEngine(src *fakeSource, ledger *fakeLedger, sender *fakeSender) *Engine {
	return NewEngine(src, ledger, sender, time.UTC, testLogger)
}

func apptAt(id, userID string, at time.Time) Appointment {
	return Appointment{
		ID:          id,
		Date:        at.Format("2006-01-02"),
		ClockTime:   at.Format("15:04"),
		UserID:      userID,
		Status:      StatusScheduled,
		PlateNumber: "KSA-1234",
		OwnerName:   "Ahmad",
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRunScanEndToEnd(t *testing.T) {
	src := &fakeSource{
		appointments: []Appointment{apptAt("a1", "u1", testNow.Add(24*time.Hour))},
		users:        map[string]*User{"u1": {ID: "u1", FCMToken: "tok-1"}},
	}
	ledger := newFakeLedger()
	sender := &fakeSender{}
	engine := newTestEngine(src, ledger, sender)

	res, err := engine.RunScan(context.Background(), testNow)
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if res.Scanned != 1 || res.Sent != 1 {
		t.Fatalf("got scanned=%d sent=%d, want 1/1", res.Scanned, res.Sent)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("got %d sends, want 1", len(sender.calls))
	}

	call := sender.calls[0]
	if call.tokens[0] != "tok-1" {
		t.Errorf("sent to %v, want tok-1", call.tokens)
	}
	if call.data["type"] != "appointment_reminder" {
		t.Errorf("data type = %q", call.data["type"])
	}
	if call.data["appointmentId"] != "a1" || call.data["reminderType"] != "24h" {
		t.Errorf("payload = %v", call.data)
	}

	k := markerKey{"a1", Kind24Hour}
	if got := ledger.markers[k]; !got.Equal(testNow) {
		t.Errorf("marker sentAt = %v, want scan now", got)
	}

	// A second scan one minute later must not send again.
	res2, err := engine.RunScan(context.Background(), testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("second RunScan: %v", err)
	}
	if res2.Sent != 0 {
		t.Errorf("second scan sent %d reminders, want 0", res2.Sent)
	}
	if len(sender.calls) != 1 {
		t.Errorf("got %d total sends after rerun, want 1", len(sender.calls))
	}
}

func TestRunScanNoDuplicateRecords(t *testing.T) {
	src := &fakeSource{
		appointments: []Appointment{apptAt("a1", "u1", testNow.Add(24*time.Hour))},
		users:        map[string]*User{"u1": {ID: "u1", FCMToken: "tok-1"}},
	}
	ledger := newFakeLedger()
	engine := newTestEngine(src, ledger, &fakeSender{})

	for i := 0; i < 2; i++ {
		if _, err := engine.RunScan(context.Background(), testNow); err != nil {
			t.Fatalf("RunScan #%d: %v", i+1, err)
		}
	}
	if calls := ledger.recordCalls[markerKey{"a1", Kind24Hour}]; calls != 1 {
		t.Errorf("Record called %d times, want 1", calls)
	}
}

func TestRunScanSkipsPastAppointment(t *testing.T) {
	src := &fakeSource{
		appointments: []Appointment{apptAt("a1", "u1", testNow.Add(-30*time.Minute))},
		users:        map[string]*User{"u1": {ID: "u1", FCMToken: "tok-1"}},
	}
	sender := &fakeSender{}
	engine := newTestEngine(src, newFakeLedger(), sender)

	res, err := engine.RunScan(context.Background(), testNow)
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if res.SkippedPast != 1 || len(sender.calls) != 0 {
		t.Errorf("past appointment dispatched: skipped=%d sends=%d", res.SkippedPast, len(sender.calls))
	}
	if len(res.Errors) != 0 {
		t.Errorf("past appointment reported as error: %v", res.Errors)
	}
}

func TestRunScanParseFailureIsolation(t *testing.T) {
	bad := apptAt("bad", "u1", testNow.Add(24*time.Hour))
	bad.Date = "10/03/2026"
	src := &fakeSource{
		appointments: []Appointment{bad, apptAt("good", "u1", testNow.Add(24*time.Hour))},
		users:        map[string]*User{"u1": {ID: "u1", FCMToken: "tok-1"}},
	}
	sender := &fakeSender{}
	engine := newTestEngine(src, newFakeLedger(), sender)

	res, err := engine.RunScan(context.Background(), testNow)
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if len(sender.calls) != 1 || sender.calls[0].data["appointmentId"] != "good" {
		t.Fatalf("valid appointment not processed alongside bad one: %+v", sender.calls)
	}
	if len(res.Errors) != 1 {
		t.Errorf("got %d errors, want 1 for the unparseable appointment", len(res.Errors))
	}
}

func TestRunScanSkipsMissingUserAndToken(t *testing.T) {
	src := &fakeSource{
		appointments: []Appointment{
			apptAt("no-user", "ghost", testNow.Add(24*time.Hour)),
			apptAt("no-token", "u2", testNow.Add(24*time.Hour)),
		},
		users: map[string]*User{"u2": {ID: "u2"}},
	}
	sender := &fakeSender{}
	ledger := newFakeLedger()
	engine := newTestEngine(src, ledger, sender)

	res, err := engine.RunScan(context.Background(), testNow)
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if len(sender.calls) != 0 {
		t.Errorf("dispatched %d reminders without a recipient token", len(sender.calls))
	}
	if res.SkippedNoUser != 2 {
		t.Errorf("SkippedNoUser = %d, want 2", res.SkippedNoUser)
	}
	if len(ledger.markers) != 0 {
		t.Errorf("markers recorded for skipped appointments: %v", ledger.markers)
	}
}

func TestRunScanOneHourWindow(t *testing.T) {
	src := &fakeSource{
		appointments: []Appointment{apptAt("a1", "u1", testNow.Add(time.Hour))},
		users:        map[string]*User{"u1": {ID: "u1", FCMToken: "tok-1"}},
	}
	sender := &fakeSender{}
	engine := newTestEngine(src, newFakeLedger(), sender)

	if _, err := engine.RunScan(context.Background(), testNow); err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if len(sender.calls) != 1 || sender.calls[0].data["reminderType"] != "1h" {
		t.Fatalf("expected a single 1h reminder, got %+v", sender.calls)
	}
}

func TestRunScanRetryAfterDispatchFailure(t *testing.T) {
	src := &fakeSource{
		appointments: []Appointment{apptAt("a1", "u1", testNow.Add(24*time.Hour))},
		users:        map[string]*User{"u1": {ID: "u1", FCMToken: "tok-1"}},
	}
	ledger := newFakeLedger()
	sender := &fakeSender{err: errors.New("fcm unavailable")}
	engine := newTestEngine(src, ledger, sender)

	res, err := engine.RunScan(context.Background(), testNow)
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("dispatch failure not surfaced: %v", res.Errors)
	}
	if len(ledger.markers) != 0 {
		t.Fatalf("marker recorded despite failed dispatch")
	}

	// Next hourly pass, still in window, transport recovered.
	sender.err = nil
	res2, err := engine.RunScan(context.Background(), testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("retry RunScan: %v", err)
	}
	if res2.Sent != 1 || len(sender.calls) != 1 {
		t.Fatalf("retry did not dispatch: sent=%d calls=%d", res2.Sent, len(sender.calls))
	}
}

func TestRunScanWindowMissedIsTerminal(t *testing.T) {
	src := &fakeSource{
		appointments: []Appointment{apptAt("a1", "u1", testNow.Add(24*time.Hour))},
		users:        map[string]*User{"u1": {ID: "u1", FCMToken: "tok-1"}},
	}
	ledger := newFakeLedger()
	sender := &fakeSender{err: errors.New("fcm unavailable")}
	engine := newTestEngine(src, ledger, sender)

	if _, err := engine.RunScan(context.Background(), testNow); err != nil {
		t.Fatalf("RunScan: %v", err)
	}

	// Transport recovers only after the 24h window has elapsed
	// (appointment now ~22h away). No attempt, no marker, no error.
	sender.err = nil
	res, err := engine.RunScan(context.Background(), testNow.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("late RunScan: %v", err)
	}
	if res.Sent != 0 || len(sender.calls) != 0 {
		t.Errorf("reminder dispatched after its window elapsed")
	}
	if len(ledger.markers) != 0 {
		t.Errorf("marker exists for a missed window: %v", ledger.markers)
	}
	if len(res.Errors) != 0 {
		t.Errorf("missed window reported as error: %v", res.Errors)
	}
}

func TestRunScanFetchFailureAborts(t *testing.T) {
	src := &fakeSource{listErr: errors.New("connection refused")}
	engine := newTestEngine(src, newFakeLedger(), &fakeSender{})

	if _, err := engine.RunScan(context.Background(), testNow); err == nil {
		t.Fatal("expected scan-level error when the candidate fetch fails")
	}
}

func TestSweeperRetention(t *testing.T) {
	ledger := newFakeLedger()
	ledger.markers[markerKey{"old", Kind24Hour}] = testNow.Add(-31 * 24 * time.Hour)
	ledger.markers[markerKey{"fresh", Kind24Hour}] = testNow.Add(-29 * 24 * time.Hour)

	sweeper := NewSweeper(ledger, 0, testLogger)
	res, err := sweeper.RunSweep(context.Background(), testNow)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if res.Deleted != 1 {
		t.Errorf("deleted %d markers, want 1", res.Deleted)
	}
	if _, ok := ledger.markers[markerKey{"old", Kind24Hour}]; ok {
		t.Errorf("31-day-old marker survived the sweep")
	}
	if _, ok := ledger.markers[markerKey{"fresh", Kind24Hour}]; !ok {
		t.Errorf("29-day-old marker was deleted")
	}
}
