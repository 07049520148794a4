// Package postgres is a record store backed by a PostgreSQL medicines table,
// accessed through pgx's database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schema = `
CREATE TABLE IF NOT EXISTS medicines (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	group_id         TEXT NOT NULL DEFAULT '',
	group_name       TEXT NOT NULL DEFAULT '',
	group_order      INTEGER NOT NULL DEFAULT 0,
	group_start_date DATE,
	frequency        TEXT NOT NULL DEFAULT 'DAILY',
	schedule_anchor  DATE,
	last_taken_at    TIMESTAMPTZ,
	created_at       TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS intakes (
	id          UUID PRIMARY KEY,
	medicine_id TEXT NOT NULL REFERENCES medicines (id) ON DELETE CASCADE,
	taken_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS intakes_medicine_taken_idx ON intakes (medicine_id, taken_at);
`

// Open opens a connection pool to Postgres using pgx (database/sql)
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// Migrate creates the tables the store needs when they are missing
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}
