// Package activity keeps the per-demand activity log: one entry per
// recorded domain event, queryable in reverse chronological order.
package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one row of a demand's activity feed.
type Entry struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	DemandID   string          `json:"demand_id"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// QueryOptions narrows an activity query.
type QueryOptions struct {
	Since *time.Time
	Until *time.Time
	Limit int
}

// DefaultQueryOptions returns the options used when the caller passes none.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Limit: 50}
}

// Store is the interface for reading and writing activity entries.
type Store interface {
	// WriteEntries appends one or more activity entries.
	WriteEntries(ctx context.Context, entries []Entry) error

	// QueryByDemand returns a demand's entries, most recent first.
	QueryByDemand(ctx context.Context, demandID string, opts QueryOptions) ([]Entry, error)
}

// SQLStore implements Store on the application's SQLite database.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a SQLStore sharing the given database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// CreateTable creates the activity_entries table. Run during startup
// migration alongside the main store's tables.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS activity_entries (
			event_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			occurred_at DATETIME NOT NULL,
			demand_id TEXT NOT NULL,
			summary TEXT NOT NULL,
			payload TEXT,
			PRIMARY KEY (demand_id, occurred_at, event_id)
		);
		CREATE INDEX IF NOT EXISTS idx_activity_demand_time
			ON activity_entries (demand_id, occurred_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("create activity table: %w", err)
	}
	return nil
}

func (s *SQLStore) WriteEntries(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO activity_entries (event_id, event_type, occurred_at, demand_id, summary, payload)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.EventID, e.EventType, e.OccurredAt, e.DemandID, e.Summary, []byte(e.Payload),
		)
		if err != nil {
			return fmt.Errorf("insert activity entry: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) QueryByDemand(ctx context.Context, demandID string, opts QueryOptions) ([]Entry, error) {
	query := `
		SELECT event_id, event_type, occurred_at, demand_id, summary, payload
		FROM activity_entries WHERE demand_id = ?`
	args := []any{demandID}
	if opts.Since != nil {
		query += ` AND occurred_at >= ?`
		args = append(args, *opts.Since)
	}
	if opts.Until != nil {
		query += ` AND occurred_at <= ?`
		args = append(args, *opts.Until)
	}
	query += ` ORDER BY occurred_at DESC LIMIT ?`
	args = append(args, normalizeLimit(opts.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var payload []byte
		if err := rows.Scan(&e.EventID, &e.EventType, &e.OccurredAt, &e.DemandID, &e.Summary, &payload); err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}
