package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// SQLSink mirrors committed entries into the audit_log table.
type SQLSink struct {
	db *sql.DB
}

// NewSQLSink creates a sink over an open database handle.
func NewSQLSink(db *sql.DB) *SQLSink {
	return &SQLSink{db: db}
}

var _ Sink = (*SQLSink)(nil)

// Write inserts one entry. Replays of the same entry are ignored.
func (s *SQLSink) Write(ctx context.Context, entry Entry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("audit: marshal details: %w", err)
	}

	query := `
		INSERT INTO audit_log (id, action, details, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, entry.ID, string(entry.Action), details, entry.Timestamp); err != nil {
		return fmt.Errorf("audit: insert entry %s: %w", entry.ID, err)
	}
	return nil
}

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	Actions []Action
	Since   time.Time
	Until   time.Time
	Limit   int
}

// Query reads mirrored entries, newest first.
func (s *SQLSink) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `
		SELECT id, action, details, created_at
		FROM audit_log
		WHERE 1=1
	`
	var args []interface{}
	argIdx := 1

	if len(filter.Actions) > 0 {
		actions := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			actions[i] = string(a)
		}
		query += fmt.Sprintf(" AND action = ANY($%d)", argIdx)
		args = append(args, pq.Array(actions))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.Since)
		argIdx++
	}
	if !filter.Until.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.Until)
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			action  string
			details []byte
		)
		if err := rows.Scan(&e.ID, &action, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		e.Action = Action(action)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("audit: decode details for %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
