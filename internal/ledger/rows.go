package ledger

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
)

// Columns is the fixed header of every trip table.
var Columns = []string{"Date", "Name", "Concept", "Cost", "Currency", "Cost_in_base_currency", "Base_currency"}

const (
	colDate = iota
	colName
	colConcept
	colCost
	colCurrency
	colCostInBase
	colBaseCurrency
)

func checkHeader(header []string) error {
	if !slices.Equal(header, Columns) {
		return fmt.Errorf("%w: unexpected header %v", ErrCorrupt, header)
	}
	return nil
}

func encodeRow(e models.Expense) storage.Row {
	row := make(storage.Row, len(Columns))
	row[colDate] = e.Date.String()
	row[colName] = e.Name
	row[colConcept] = e.Concept.String()
	row[colCost] = e.Cost.String()
	row[colCurrency] = e.Currency.String()
	row[colCostInBase] = e.CostInBase.String()
	row[colBaseCurrency] = e.BaseCurrency.String()
	return row
}

func decodeRow(row storage.Row) (models.Expense, error) {
	var e models.Expense
	if len(row) != len(Columns) {
		return e, fmt.Errorf("%w: row has %d cells, want %d", ErrCorrupt, len(row), len(Columns))
	}

	var err error
	if e.Date, err = models.ParseDate(row[colDate]); err != nil {
		return e, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	e.Name = row[colName]
	if e.Concept, err = models.ParseConcept(row[colConcept]); err != nil {
		return e, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if e.Cost, err = decodeAmount(row[colCost]); err != nil {
		return e, err
	}
	if e.Currency, err = models.ParseCurrency(row[colCurrency]); err != nil {
		return e, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if e.CostInBase, err = decodeAmount(row[colCostInBase]); err != nil {
		return e, err
	}
	if e.BaseCurrency, err = models.ParseCurrency(row[colBaseCurrency]); err != nil {
		return e, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return e, nil
}

// decodeAmount accepts both '.' and ',' as the decimal separator.
func decodeAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.Replace(strings.TrimSpace(s), ",", ".", 1))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: bad amount %q", ErrCorrupt, s)
	}
	return d, nil
}
