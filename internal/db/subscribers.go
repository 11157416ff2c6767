package db

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"newsbot/internal/models"
)

// ErrSubscriberNotFound is returned by Get for unknown subscriber ids.
var ErrSubscriberNotFound = errors.New("subscriber not found")

// SubscriberRegistry keeps the set of bot users in the SQL database.
type SubscriberRegistry struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSubscriberRegistry(db *sqlx.DB) *SubscriberRegistry {
	return &SubscriberRegistry{db: db, now: time.Now}
}

type subscriberRow struct {
	ID                int64          `db:"id"`
	DisplayName       string         `db:"display_name"`
	LastInteractionAt sql.NullString `db:"last_interaction_at"`
	CreatedAt         string         `db:"created_at"`
}

// Register adds the subscriber if it is not known yet. Registering an
// existing subscriber is a no-op and keeps its last interaction time.
func (r *SubscriberRegistry) Register(ctx context.Context, id int64, displayName string) error {
	query := r.db.Rebind(`
		INSERT INTO subscribers (id, display_name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	_, err := r.db.ExecContext(ctx, query, id, displayName, r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		log.Printf("Error registering subscriber %d: %v", id, err)
		return unavailable("register subscriber", err)
	}
	return nil
}

// Touch records a subscriber-initiated interaction. Unknown ids are logged
// and ignored.
func (r *SubscriberRegistry) Touch(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE subscribers SET last_interaction_at = ? WHERE id = ?"),
		at.Format(time.RFC3339Nano), id)
	if err != nil {
		return unavailable("touch subscriber", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		log.Printf("Touch for unknown subscriber %d ignored", id)
	}
	return nil
}

// AllSubscriberIDs returns a snapshot of every registered subscriber id.
func (r *SubscriberRegistry) AllSubscriberIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, "SELECT id FROM subscribers ORDER BY id"); err != nil {
		return nil, unavailable("list subscribers", err)
	}
	return ids, nil
}

// Get returns a single subscriber record.
func (r *SubscriberRegistry) Get(ctx context.Context, id int64) (*models.Subscriber, error) {
	var row subscriberRow
	err := r.db.GetContext(ctx, &row,
		r.db.Rebind("SELECT id, display_name, last_interaction_at, created_at FROM subscribers WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriberNotFound
	}
	if err != nil {
		return nil, unavailable("get subscriber", err)
	}

	sub := &models.Subscriber{ID: row.ID, DisplayName: row.DisplayName}
	if t, err := time.Parse(time.RFC3339Nano, row.CreatedAt); err == nil {
		sub.CreatedAt = t
	}
	if row.LastInteractionAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, row.LastInteractionAt.String); err == nil {
			sub.LastInteractionAt = &t
		}
	}
	return sub, nil
}
