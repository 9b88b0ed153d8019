package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsplit/internal/currency"
	"github.com/mmynk/tripsplit/internal/ledger"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/internal/storage/sqlite"
	"github.com/mmynk/tripsplit/internal/validate"
)

// recorder counts ledger calls.
type recorder struct {
	appends    []models.Expense
	overwrites map[int]models.Expense
	err        error
}

func (r *recorder) Append(_ context.Context, rec models.Expense) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.appends = append(r.appends, rec)
	return len(r.appends) - 1, nil
}

func (r *recorder) Overwrite(_ context.Context, position int, rec models.Expense) error {
	if r.err != nil {
		return r.err
	}
	if r.overwrites == nil {
		r.overwrites = make(map[int]models.Expense)
	}
	r.overwrites[position] = rec
	return nil
}

func (r *recorder) calls() int { return len(r.appends) + len(r.overwrites) }

func fill(t *testing.T, s *EditSession) {
	t.Helper()
	for field, raw := range map[Field]string{Date: "01/06/2024", Name: "alice smith", Concept: "2", Cost: "12,50", Currency: "3"} {
		if err := s.Set(field, raw); err != nil {
			t.Fatalf("Set(%s, %q) failed: %v", field, raw, err)
		}
	}
}

func TestConfirmAppendsOnce(t *testing.T) {
	rec := &recorder{}
	s := New(rec)
	if !s.IsNew() {
		t.Fatal("expected a new session")
	}
	if got := s.Missing(); len(got) != len(Fields) {
		t.Errorf("Missing() = %v, want all fields", got)
	}
	fill(t, s)

	pos, err := s.Confirm(context.Background())
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if pos != 0 || rec.calls() != 1 {
		t.Fatalf("position %d after %d ledger calls, want 0 after 1", pos, rec.calls())
	}
	got := rec.appends[0]
	want := models.Expense{
		Date:     models.NewDate(2024, time.June, 1),
		Name:     "Alice Smith",
		Concept:  models.Meals,
		Cost:     decimal.RequireFromString("12.5"),
		Currency: models.USD,
	}
	if !got.Equal(want) {
		t.Errorf("appended %+v, want %+v", got, want)
	}
	if s.State() != Committed {
		t.Errorf("state = %s, want committed", s.State())
	}

	// A committed session is closed.
	if err := s.Set(Name, "Bob"); !errors.Is(err, ErrClosed) {
		t.Errorf("Set after commit: expected ErrClosed, got %v", err)
	}
	if _, err := s.Confirm(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("second Confirm: expected ErrClosed, got %v", err)
	}
	if rec.calls() != 1 {
		t.Errorf("ledger called %d times, want 1", rec.calls())
	}
}

func TestConfirmIncomplete(t *testing.T) {
	rec := &recorder{}
	s := New(rec)
	if err := s.Set(Name, "Alice"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := s.Confirm(context.Background()); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if s.State() != Collecting || rec.calls() != 0 {
		t.Errorf("state %s with %d ledger calls, want collecting with none", s.State(), rec.calls())
	}
	if diff := cmp.Diff([]Field{Date, Concept, Cost, Currency}, s.Missing()); diff != "" {
		t.Errorf("Missing() (-want +got):\n%s", diff)
	}
}

func TestValidationFailureKeepsCollecting(t *testing.T) {
	s := New(&recorder{})
	tests := []struct {
		field  Field
		raw    string
		reason validate.Reason
	}{
		{Date, "2024-06-01", validate.InvalidFormat},
		{Concept, "7", validate.OutOfRange},
		{Currency, "euro", validate.NotANumber},
		{Cost, "-3", validate.NotANumber},
		{Name, "   ", validate.Empty},
	}
	for _, tt := range tests {
		t.Run(tt.field.String(), func(t *testing.T) {
			err := s.Set(tt.field, tt.raw)
			var failure *validate.Failure
			if !errors.As(err, &failure) {
				t.Fatalf("expected *validate.Failure, got %v", err)
			}
			if failure.Reason != tt.reason {
				t.Errorf("reason = %s, want %s", failure.Reason, tt.reason)
			}
			if s.State() != Collecting {
				t.Errorf("state = %s, want collecting", s.State())
			}
		})
	}
	if len(s.Missing()) != len(Fields) {
		t.Errorf("failed values were staged: missing %v", s.Missing())
	}
}

func TestCancelTokenAbandons(t *testing.T) {
	for _, f := range Fields {
		t.Run(f.String(), func(t *testing.T) {
			rec := &recorder{}
			s := New(rec)
			if err := s.Set(Name, "Alice"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := s.Set(f, " c "); !errors.Is(err, ErrAbandoned) {
				t.Fatalf("expected ErrAbandoned, got %v", err)
			}
			if s.State() != Abandoned {
				t.Errorf("state = %s, want abandoned", s.State())
			}
			if _, err := s.Confirm(context.Background()); !errors.Is(err, ErrClosed) {
				t.Errorf("Confirm after cancel: expected ErrClosed, got %v", err)
			}
			if rec.calls() != 0 {
				t.Errorf("ledger called %d times", rec.calls())
			}
		})
	}
}

func TestEditOverwritesPosition(t *testing.T) {
	rec := &recorder{}
	existing := models.Expense{
		Date:     models.NewDate(2024, time.June, 1),
		Name:     "Alice",
		Concept:  models.Travel,
		Cost:     decimal.RequireFromString("100"),
		Currency: models.EUR,
	}
	s := Edit(rec, 4, existing)
	if s.IsNew() || len(s.Missing()) != 0 {
		t.Fatalf("edit session should start complete, missing %v", s.Missing())
	}
	if err := s.Set(Cost, "80"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	staged, set := s.Staged()
	if !set[Cost] || !staged.Cost.Equal(decimal.NewFromInt(80)) {
		t.Errorf("staged cost = %s", staged.Cost)
	}

	pos, err := s.Confirm(context.Background())
	if err != nil || pos != 4 {
		t.Fatalf("Confirm = %d, %v; want 4, nil", pos, err)
	}
	if len(rec.appends) != 0 || len(rec.overwrites) != 1 {
		t.Fatalf("appends %d overwrites %d, want 0 and 1", len(rec.appends), len(rec.overwrites))
	}
	if got := rec.overwrites[4]; got.Name != "Alice" || !got.Cost.Equal(decimal.NewFromInt(80)) {
		t.Errorf("overwrote with %+v", got)
	}
}

func TestLedgerErrorAbandons(t *testing.T) {
	rec := &recorder{err: currency.ErrRateNotFound}
	s := New(rec)
	fill(t, s)
	if _, err := s.Confirm(context.Background()); !errors.Is(err, currency.ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound, got %v", err)
	}
	if s.State() != Abandoned {
		t.Errorf("state = %s, want abandoned", s.State())
	}
}

// newParis returns a ledger for an empty EUR trip named Paris in a temp database.
func newParis(t *testing.T) (*ledger.Ledger, storage.Store) {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "tripsplit-session-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	conv := currency.NewConverter(currency.DefaultTable())
	l, err := ledger.CreateTrip(context.Background(), store, conv, "Paris", models.EUR)
	if err != nil {
		t.Fatalf("CreateTrip failed: %v", err)
	}
	return l, store
}

func TestEditNegativePositionNeverAppends(t *testing.T) {
	rec := &recorder{}
	s := Edit(rec, -1, models.Expense{Name: "Alice", Cost: decimal.NewFromInt(5), Currency: models.EUR})
	if s.IsNew() {
		t.Fatal("expected an edit session")
	}
	if _, err := s.Confirm(context.Background()); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if len(rec.appends) != 0 || len(rec.overwrites) != 1 {
		t.Fatalf("appends %d overwrites %d, want 0 and 1", len(rec.appends), len(rec.overwrites))
	}

	l, store := newParis(t)
	ctx := context.Background()
	seed := New(l)
	fill(t, seed)
	if _, err := seed.Confirm(ctx); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	before := readAll(t, store)

	existing, err := l.At(0)
	if err != nil {
		t.Fatalf("At failed: %v", err)
	}
	e := Edit(l, -1, existing)
	if _, err := e.Confirm(ctx); !errors.Is(err, ledger.ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}
	if e.State() != Abandoned {
		t.Errorf("state = %s, want abandoned", e.State())
	}
	if diff := cmp.Diff(before, readAll(t, store)); diff != "" {
		t.Errorf("store changed (-before +after):\n%s", diff)
	}
	if l.Len() != 1 {
		t.Errorf("ledger has %d entries, want 1", l.Len())
	}
}

func TestCancelLeavesLedgerUntouched(t *testing.T) {
	l, store := newParis(t)
	ctx := context.Background()
	seed := New(l)
	fill(t, seed)
	if _, err := seed.Confirm(ctx); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	before := readAll(t, store)

	// New entry: two fields edited, then cancelled.
	s := New(l)
	if err := s.Set(Name, "Bob"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(Cost, "10"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	// Existing entry: two fields edited, then the cancel token.
	existing, err := l.At(0)
	if err != nil {
		t.Fatalf("At failed: %v", err)
	}
	e := Edit(l, 0, existing)
	if err := e.Set(Name, "Carol"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := e.Set(Currency, "1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := e.Set(Date, "C"); !errors.Is(err, ErrAbandoned) {
		t.Fatalf("expected ErrAbandoned, got %v", err)
	}

	if diff := cmp.Diff(before, readAll(t, store)); diff != "" {
		t.Errorf("store changed after cancelled sessions (-before +after):\n%s", diff)
	}
	if l.Len() != 1 {
		t.Errorf("ledger has %d entries, want 1", l.Len())
	}
}

func readAll(t *testing.T, store storage.Store) []storage.Row {
	t.Helper()
	_, rows, err := store.ReadRows(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	return rows
}
