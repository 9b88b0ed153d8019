// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/tripsplit/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Debug("SQLite store opened", "path", dbPath)
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTable persists a new trip table with its header and base currency.
func (s *SQLiteStore) CreateTable(ctx context.Context, name, baseCurrency string, header []string) error {
	encoded, err := storage.EncodeCells(header)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tableExists(ctx, tx, name)
	if err == nil {
		return fmt.Errorf("%w: %s", storage.ErrTableExists, name)
	}
	if !errors.Is(err, storage.ErrTableNotFound) {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO trips (name, base_currency, header, created_at) VALUES (?, ?, ?, ?)",
		name, baseCurrency, encoded, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Tables lists all trips in creation order.
func (s *SQLiteStore) Tables(ctx context.Context) ([]storage.Table, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, base_currency FROM trips ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var tables []storage.Table
	for rows.Next() {
		var t storage.Table
		if err := rows.Scan(&t.Name, &t.BaseCurrency); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trips: %w", err)
	}
	return tables, nil
}

// BaseCurrency returns the base currency of a trip.
func (s *SQLiteStore) BaseCurrency(ctx context.Context, name string) (string, error) {
	var cur string
	err := s.db.QueryRowContext(ctx, "SELECT base_currency FROM trips WHERE name = ?", name).Scan(&cur)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", storage.ErrTableNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get base currency: %w", err)
	}
	return cur, nil
}

// DeleteTable removes a trip and all of its entries.
func (s *SQLiteStore) DeleteTable(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE trip = ?", name); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM trips WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check deleted trip: %w", err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrTableNotFound, name)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AppendRow inserts a row at position = current row count.
func (s *SQLiteStore) AppendRow(ctx context.Context, name string, row storage.Row) error {
	cells, err := storage.EncodeCells(row)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tableExists(ctx, tx, name); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries WHERE trip = ?", name).Scan(&count); err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO entries (id, trip, position, cells) VALUES (?, ?, ?, ?)",
		uuid.New().String(), name, count, cells,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	slog.Debug("Row appended", "trip", name, "position", count)
	return nil
}

// UpdateRow replaces the cells of the row at position.
func (s *SQLiteStore) UpdateRow(ctx context.Context, name string, position int, row storage.Row) error {
	cells, err := storage.EncodeCells(row)
	if err != nil {
		return err
	}
	if err := tableExists(ctx, s.db, name); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE entries SET cells = ? WHERE trip = ? AND position = ?",
		cells, name, position,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s[%d]", storage.ErrRowNotFound, name, position)
	}
	slog.Debug("Row updated", "trip", name, "position", position)
	return nil
}

// DeleteRow removes the row at position and shifts the following rows up.
func (s *SQLiteStore) DeleteRow(ctx context.Context, name string, position int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tableExists(ctx, tx, name); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE trip = ? AND position = ?", name, position)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s[%d]", storage.ErrRowNotFound, name, position)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE entries SET position = position - 1 WHERE trip = ? AND position > ?",
		name, position,
	)
	if err != nil {
		return fmt.Errorf("failed to shift entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	slog.Debug("Row deleted", "trip", name, "position", position)
	return nil
}

// ReadRows returns the header and the rows of a trip, in position order.
func (s *SQLiteStore) ReadRows(ctx context.Context, name string) ([]string, []storage.Row, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx, "SELECT header FROM trips WHERE name = ?", name).Scan(&encoded)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("%w: %s", storage.ErrTableNotFound, name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trip header: %w", err)
	}
	header, err := storage.DecodeCells(encoded)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT cells FROM entries WHERE trip = ? ORDER BY position",
		name,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get entries: %w", err)
	}
	defer rows.Close()

	var result []storage.Row
	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return nil, nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		row, err := storage.DecodeCells(cells)
		if err != nil {
			return nil, nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return header, result, nil
}

// Rates returns the exchange-rate reference table.
func (s *SQLiteStore) Rates(ctx context.Context) ([]storage.Rate, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT from_currency, to_currency, rate FROM exchange_rates ORDER BY from_currency, to_currency",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchange rates: %w", err)
	}
	defer rows.Close()

	var rates []storage.Rate
	for rows.Next() {
		var r storage.Rate
		if err := rows.Scan(&r.From, &r.To, &r.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan exchange rate: %w", err)
		}
		rates = append(rates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exchange rates: %w", err)
	}
	return rates, nil
}

// tableExists returns storage.ErrTableNotFound (wrapped) if the trip is unknown.
func tableExists(ctx context.Context, q querier, name string) error {
	var exists int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM trips WHERE name = ?", name).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", storage.ErrTableNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to check trip existence: %w", err)
	}
	return nil
}
