// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrTableNotFound is returned when a table does not exist.
	ErrTableNotFound = errors.New("table not found")

	// ErrTableExists is returned when creating a table whose name is taken.
	ErrTableExists = errors.New("table already exists")

	// ErrRowNotFound is returned when a position is outside the table.
	ErrRowNotFound = errors.New("row not found")
)

// Row is one line of a table, cells in header order.
type Row []string

// Table describes one table of the store.
type Table struct {
	Name string

	// BaseCurrency is the out-of-band cell stored next to the table.
	BaseCurrency string
}

// Rate is one line of the exchange-rate reference table. Rate is a decimal string.
type Rate struct {
	From string
	To   string
	Rate string
}

// SeedRates is the reference table written into a fresh store. Existing rows are never overwritten.
var SeedRates = []Rate{
	{From: "EUR", To: "GBP", Rate: "0.85"},
	{From: "EUR", To: "USD", Rate: "1.10"},
	{From: "GBP", To: "EUR", Rate: "1.17"},
	{From: "GBP", To: "USD", Rate: "1.29"},
	{From: "USD", To: "EUR", Rate: "0.90"},
	{From: "USD", To: "GBP", Rate: "0.78"},
}

// Store defines a spreadsheet-like row store: named tables with a header and ordered rows,
// addressed by their 0-based position.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the ledger.
type Store interface {
	// CreateTable creates an empty table with the given header.
	// Returns ErrTableExists if the name is taken (names are case-sensitive).
	CreateTable(ctx context.Context, name, baseCurrency string, header []string) error

	// Tables lists all tables in creation order.
	Tables(ctx context.Context) ([]Table, error)

	// BaseCurrency returns the out-of-band base currency cell of a table.
	BaseCurrency(ctx context.Context, name string) (string, error)

	// DeleteTable removes a table and all its rows.
	DeleteTable(ctx context.Context, name string) error

	// AppendRow adds a row after the last one.
	AppendRow(ctx context.Context, name string, row Row) error

	// UpdateRow replaces the row at position.
	// Returns ErrRowNotFound if position is outside the table.
	UpdateRow(ctx context.Context, name string, position int, row Row) error

	// DeleteRow removes the row at position; the following rows move up by one.
	// Returns ErrRowNotFound if position is outside the table.
	DeleteRow(ctx context.Context, name string, position int) error

	// ReadRows returns the header and every row of a table, in position order.
	ReadRows(ctx context.Context, name string) (header []string, rows []Row, err error)

	// Rates returns the exchange-rate reference table.
	Rates(ctx context.Context) ([]Rate, error)

	// Close releases any resources held by the store.
	Close() error
}
