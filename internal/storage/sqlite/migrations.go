package sqlite

import (
	"database/sql"

	"github.com/mmynk/tripsplit/internal/storage"
)

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Cells are stored as a JSON array in header order.
const schema = `
CREATE TABLE IF NOT EXISTS trips (
    name TEXT PRIMARY KEY,
    base_currency TEXT NOT NULL,
    header TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
    id TEXT PRIMARY KEY,
    trip TEXT NOT NULL,
    position INTEGER NOT NULL,
    cells TEXT NOT NULL,
    FOREIGN KEY (trip) REFERENCES trips(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS exchange_rates (
    from_currency TEXT NOT NULL,
    to_currency TEXT NOT NULL,
    rate TEXT NOT NULL,
    PRIMARY KEY (from_currency, to_currency)
);

CREATE INDEX IF NOT EXISTS idx_entries_trip_position ON entries(trip, position);
`

// runMigrations executes the schema setup and seeds the reference rates.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	for _, r := range storage.SeedRates {
		if _, err := db.Exec(
			"INSERT OR IGNORE INTO exchange_rates (from_currency, to_currency, rate) VALUES (?, ?, ?)",
			r.From, r.To, r.Rate,
		); err != nil {
			return err
		}
	}
	return nil
}
