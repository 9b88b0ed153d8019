// Package currency converts amounts between the supported currencies using a static rate table.
package currency

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
)

// ErrRateNotFound is returned when the table has no rate for a pair. The table is expected to be
// complete for every supported currency, so this is a configuration error.
var ErrRateNotFound = errors.New("exchange rate not found")

// Pair is an ordered (from, to) currency pair.
type Pair struct {
	From models.Currency
	To   models.Currency
}

func (p Pair) String() string { return string(p.From) + "->" + string(p.To) }

// Table maps a pair to a positive rate: 1 From = rate To.
type Table map[Pair]decimal.Decimal

// DefaultTable returns the rates seeded into a fresh store (storage.SeedRates).
func DefaultTable() Table {
	table, err := parse(storage.SeedRates)
	if err != nil {
		panic(err)
	}
	return table
}

// Load reads the reference table from the store.
func Load(ctx context.Context, store storage.Store) (Table, error) {
	rates, err := store.Rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange rates: %w", err)
	}
	return parse(rates)
}

func parse(rates []storage.Rate) (Table, error) {
	table := make(Table, len(rates))
	for _, r := range rates {
		from, err := models.ParseCurrency(r.From)
		if err != nil {
			return nil, fmt.Errorf("bad exchange rate row %s->%s: %w", r.From, r.To, err)
		}
		to, err := models.ParseCurrency(r.To)
		if err != nil {
			return nil, fmt.Errorf("bad exchange rate row %s->%s: %w", r.From, r.To, err)
		}
		rate, err := decimal.NewFromString(r.Rate)
		if err != nil {
			return nil, fmt.Errorf("bad exchange rate %s->%s %q: %w", r.From, r.To, r.Rate, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("bad exchange rate %s->%s: %s is not positive", r.From, r.To, rate)
		}
		table[Pair{from, to}] = rate
	}
	return table, nil
}

// Converter resolves rates against a Table.
type Converter struct {
	table Table
}

// NewConverter returns a Converter over table. The table is not copied and must not change.
func NewConverter(table Table) *Converter {
	return &Converter{table: table}
}

// Rate returns how many units of to one unit of from is worth.
func (c *Converter) Rate(from, to models.Currency) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := c.table[Pair{from, to}]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s->%s", ErrRateNotFound, from, to)
	}
	return rate, nil
}

// Convert returns amount expressed in to. No rounding is applied.
func (c *Converter) Convert(amount decimal.Decimal, from, to models.Currency) (decimal.Decimal, error) {
	rate, err := c.Rate(from, to)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return amount.Mul(rate), nil
}

// Check verifies that every supported currency converts to base.
func (c *Converter) Check(base models.Currency) error {
	for _, cur := range models.Currencies {
		if _, err := c.Rate(cur, base); err != nil {
			return err
		}
	}
	return nil
}

// Pairs returns the table pairs in models.Currencies order.
func (c *Converter) Pairs() []Pair {
	var pairs []Pair
	for _, from := range models.Currencies {
		for _, to := range models.Currencies {
			if _, ok := c.table[Pair{from, to}]; ok {
				pairs = append(pairs, Pair{from, to})
			}
		}
	}
	return pairs
}
