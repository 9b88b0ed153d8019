// Package postgres provides a PostgreSQL-backed implementation of the storage.Store interface,
// for ledgers shared from a database server instead of a local file.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mmynk/tripsplit/internal/storage"
)

var _ storage.Store = (*Store)(nil)

const schema = `
create table if not exists trips (
    id bigserial unique,
    name text primary key,
    base_currency text not null,
    header text not null,
    created_at timestamptz not null default now()
);

create table if not exists entries (
    id text primary key,
    trip text not null references trips(name) on delete cascade,
    position integer not null,
    cells text not null
);

create table if not exists exchange_rates (
    from_currency text not null,
    to_currency text not null,
    rate text not null,
    primary key (from_currency, to_currency)
);

create index if not exists idx_entries_trip_position on entries(trip, position);
`

// Store implements storage.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to the database at dsn and runs the schema migration.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(15 * time.Minute)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL store opened")
	return NewWithDB(db), nil
}

// NewWithDB wraps an already migrated database.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// CreateTable persists a new trip with its header and base currency.
func (s *Store) CreateTable(ctx context.Context, name, baseCurrency string, header []string) error {
	encoded, err := storage.EncodeCells(header)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`insert into trips (name, base_currency, header) values ($1, $2, $3) on conflict (name) do nothing`,
		name, baseCurrency, encoded,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check inserted trip: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrTableExists, name)
	}
	return nil
}

// Tables lists all trips in creation order.
func (s *Store) Tables(ctx context.Context) ([]storage.Table, error) {
	rows, err := s.db.QueryContext(ctx, `select name, base_currency from trips order by id`)
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
func (s *Store) BaseCurrency(ctx context.Context, name string) (string, error) {
	var cur string
	err := s.db.QueryRowContext(ctx, `select base_currency from trips where name = $1`, name).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", storage.ErrTableNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get base currency: %w", err)
	}
	return cur, nil
}

// DeleteTable removes a trip. The foreign key cascade drops its entries.
func (s *Store) DeleteTable(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `delete from trips where name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted trip: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrTableNotFound, name)
	}
	return nil
}

// AppendRow inserts a row at position = current row count.
func (s *Store) AppendRow(ctx context.Context, name string, row storage.Row) error {
	cells, err := storage.EncodeCells(row)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Locking the trip row serializes appends to the same trip.
	if err := lockTrip(ctx, tx, name); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx, `select count(*) from entries where trip = $1`, name).Scan(&count); err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`insert into entries (id, trip, position, cells) values ($1, $2, $3, $4)`,
		uuid.New().String(), name, count, cells,
	); err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateRow replaces the cells of the row at position.
func (s *Store) UpdateRow(ctx context.Context, name string, position int, row storage.Row) error {
	cells, err := storage.EncodeCells(row)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockTrip(ctx, tx, name); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`update entries set cells = $1 where trip = $2 and position = $3`,
		cells, name, position,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if err := mustAffect(res, name, position); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteRow removes the row at position and shifts the following rows up.
func (s *Store) DeleteRow(ctx context.Context, name string, position int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockTrip(ctx, tx, name); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `delete from entries where trip = $1 and position = $2`, name, position)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if err := mustAffect(res, name, position); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`update entries set position = position - 1 where trip = $1 and position > $2`,
		name, position,
	); err != nil {
		return fmt.Errorf("failed to shift entries: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReadRows returns the header and the rows of a trip, in position order.
func (s *Store) ReadRows(ctx context.Context, name string) ([]string, []storage.Row, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx, `select header from trips where name = $1`, name).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", storage.ErrTableNotFound, name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trip header: %w", err)
	}
	header, err := storage.DecodeCells(encoded)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `select cells from entries where trip = $1 order by position`, name)
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
func (s *Store) Rates(ctx context.Context) ([]storage.Rate, error) {
	rows, err := s.db.QueryContext(ctx,
		`select from_currency, to_currency, rate from exchange_rates order by from_currency, to_currency`)
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

// migrate creates the schema and seeds the reference rates.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	for _, r := range storage.SeedRates {
		if _, err := db.ExecContext(ctx,
			`insert into exchange_rates (from_currency, to_currency, rate) values ($1, $2, $3) on conflict do nothing`,
			r.From, r.To, r.Rate,
		); err != nil {
			return err
		}
	}
	return nil
}

// lockTrip takes a row lock on the trip for the rest of tx.
func lockTrip(ctx context.Context, tx *sql.Tx, name string) error {
	var found string
	err := tx.QueryRowContext(ctx, `select name from trips where name = $1 for update`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", storage.ErrTableNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to lock trip: %w", err)
	}
	return nil
}

func mustAffect(res sql.Result, name string, position int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected entries: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s[%d]", storage.ErrRowNotFound, name, position)
	}
	return nil
}
