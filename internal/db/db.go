package db

import (
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // Postgres driver
	_ "modernc.org/sqlite" // SQLite driver for local runs and tests
)

// ErrStoreUnavailable is returned when the storage layer cannot serve a
// request. Callers abort the current operation and try again later.
var ErrStoreUnavailable = errors.New("store unavailable")

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id           TEXT PRIMARY KEY,
	published_at TEXT NOT NULL,
	published_ns BIGINT NOT NULL,
	category     TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL,
	url          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_ns, id);

CREATE TABLE IF NOT EXISTS subscribers (
	id                  BIGINT PRIMARY KEY,
	display_name        TEXT NOT NULL DEFAULT '',
	last_interaction_at TEXT,
	created_at          TEXT NOT NULL
);
`

// Open connects to the database and makes sure the schema exists.
// driver is either "postgres" or "sqlite".
func Open(driver, dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite" {
		// modernc serializes writers itself; one connection keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("Database connection established (%s)", driver)
	return db, nil
}

// Migrate creates the tables and indexes if they do not exist yet.
func Migrate(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
