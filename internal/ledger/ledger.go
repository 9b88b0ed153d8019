// Package ledger keeps the ordered expenses of one trip in sync with the backing store.
//
// Entries are addressed by their 0-based position. Positions are NOT stable across deletes:
// deleting position p shifts every later entry down by one, so callers must not keep a position
// across a delete of a lower or equal position.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/mmynk/tripsplit/internal/currency"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
)

var (
	// ErrPositionNotFound is returned for a position outside [0, Len()-1].
	ErrPositionNotFound = errors.New("position not found")

	// ErrTripExists is returned when creating a trip whose name is taken.
	ErrTripExists = errors.New("trip already exists")

	// ErrTripNotFound is returned when the trip does not exist.
	ErrTripNotFound = errors.New("trip not found")

	// ErrCorrupt is returned when stored rows cannot be read back as expenses.
	ErrCorrupt = errors.New("corrupt ledger")
)

// Ledger is the in-memory view of a trip's entries. Every mutation is written to the store
// before the view changes.
type Ledger struct {
	store   storage.Store
	conv    *currency.Converter
	trip    models.Trip
	entries []models.Expense
}

// Open reads the trip name from the store.
func Open(ctx context.Context, store storage.Store, conv *currency.Converter, name string) (*Ledger, error) {
	l := &Ledger{store: store, conv: conv, trip: models.Trip{Name: name}}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload discards the in-memory view and reads the trip again.
func (l *Ledger) Reload(ctx context.Context) error {
	code, err := l.store.BaseCurrency(ctx, l.trip.Name)
	if err != nil {
		return tripError(l.trip.Name, err)
	}
	base, err := models.ParseCurrency(code)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	header, rows, err := l.store.ReadRows(ctx, l.trip.Name)
	if err != nil {
		return tripError(l.trip.Name, err)
	}
	if err := checkHeader(header); err != nil {
		return err
	}
	entries := make([]models.Expense, 0, len(rows))
	for i, row := range rows {
		e, err := decodeRow(row)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		entries = append(entries, e)
	}

	l.trip.BaseCurrency = base
	l.entries = entries
	return nil
}

// Trip returns the trip this ledger belongs to.
func (l *Ledger) Trip() models.Trip { return l.trip }

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.entries) }

// At returns the entry at position.
func (l *Ledger) At(position int) (models.Expense, error) {
	if err := l.checkPosition(position); err != nil {
		return models.Expense{}, err
	}
	return l.entries[position], nil
}

// Entries yields (position, expense) pairs in insertion order.
// The sequence can be iterated more than once.
func (l *Ledger) Entries() iter.Seq2[int, models.Expense] {
	return func(yield func(int, models.Expense) bool) {
		for i, e := range l.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Append adds rec at the end and returns its position.
// Fields are not validated again; the derived cost is recomputed.
func (l *Ledger) Append(ctx context.Context, rec models.Expense) (int, error) {
	rec, err := l.derive(rec)
	if err != nil {
		return 0, err
	}
	if err := l.store.AppendRow(ctx, l.trip.Name, encodeRow(rec)); err != nil {
		return 0, fmt.Errorf("failed to append entry: %w", tripError(l.trip.Name, err))
	}
	l.entries = append(l.entries, rec)
	position := len(l.entries) - 1
	slog.Info("Entry added", "trip", l.trip.Name, "position", position, "name", rec.Name)
	return position, nil
}

// Overwrite replaces the entry at position with rec.
func (l *Ledger) Overwrite(ctx context.Context, position int, rec models.Expense) error {
	if err := l.checkPosition(position); err != nil {
		return err
	}
	rec, err := l.derive(rec)
	if err != nil {
		return err
	}
	if err := l.store.UpdateRow(ctx, l.trip.Name, position, encodeRow(rec)); err != nil {
		return fmt.Errorf("failed to update entry: %w", l.rowError(position, err))
	}
	l.entries[position] = rec
	slog.Info("Entry updated", "trip", l.trip.Name, "position", position, "name", rec.Name)
	return nil
}

// Delete removes the entry at position. Later entries move down by one position.
func (l *Ledger) Delete(ctx context.Context, position int) error {
	if err := l.checkPosition(position); err != nil {
		return err
	}
	if err := l.store.DeleteRow(ctx, l.trip.Name, position); err != nil {
		return fmt.Errorf("failed to delete entry: %w", l.rowError(position, err))
	}
	l.entries = append(l.entries[:position:position], l.entries[position+1:]...)
	slog.Info("Entry deleted", "trip", l.trip.Name, "position", position)
	return nil
}

// derive fills the base-currency fields of rec.
func (l *Ledger) derive(rec models.Expense) (models.Expense, error) {
	inBase, err := l.conv.Convert(rec.Cost, rec.Currency, l.trip.BaseCurrency)
	if err != nil {
		return models.Expense{}, err
	}
	rec.CostInBase = inBase
	rec.BaseCurrency = l.trip.BaseCurrency
	return rec, nil
}

func (l *Ledger) checkPosition(position int) error {
	if position < 0 || position >= len(l.entries) {
		return fmt.Errorf("%w: %d (trip %q has %d entries)", ErrPositionNotFound, position, l.trip.Name, len(l.entries))
	}
	return nil
}

func (l *Ledger) rowError(position int, err error) error {
	if errors.Is(err, storage.ErrRowNotFound) {
		return fmt.Errorf("%w: %d: %w", ErrPositionNotFound, position, err)
	}
	return tripError(l.trip.Name, err)
}

func tripError(name string, err error) error {
	if errors.Is(err, storage.ErrTableNotFound) {
		return fmt.Errorf("%w: %q", ErrTripNotFound, name)
	}
	return err
}

// CreateTrip creates an empty trip reported in base.
// The converter must resolve every supported currency to base; otherwise nothing is created.
func CreateTrip(ctx context.Context, store storage.Store, conv *currency.Converter, name string, base models.Currency) (*Ledger, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("trip name is empty")
	}
	if err := conv.Check(base); err != nil {
		return nil, fmt.Errorf("cannot create trip %q: %w", name, err)
	}
	if err := store.CreateTable(ctx, name, base.String(), Columns); err != nil {
		if errors.Is(err, storage.ErrTableExists) {
			return nil, fmt.Errorf("%w: %q", ErrTripExists, name)
		}
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}
	slog.Info("Trip created", "trip", name, "base_currency", base)
	return &Ledger{store: store, conv: conv, trip: models.Trip{Name: name, BaseCurrency: base}}, nil
}

// ListTrips returns every trip in creation order.
func ListTrips(ctx context.Context, store storage.Store) ([]models.Trip, error) {
	tables, err := store.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	trips := make([]models.Trip, 0, len(tables))
	for _, t := range tables {
		base, err := models.ParseCurrency(t.BaseCurrency)
		if err != nil {
			return nil, fmt.Errorf("%w: trip %q: %w", ErrCorrupt, t.Name, err)
		}
		trips = append(trips, models.Trip{Name: t.Name, BaseCurrency: base})
	}
	return trips, nil
}

// DeleteTrip removes a trip and discards all its entries.
func DeleteTrip(ctx context.Context, store storage.Store, name string) error {
	if err := store.DeleteTable(ctx, name); err != nil {
		return fmt.Errorf("failed to delete trip: %w", tripError(name, err))
	}
	slog.Info("Trip deleted", "trip", name)
	return nil
}
