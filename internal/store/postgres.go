package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps snapshots in the JSONB snapshots table.
type PostgresStore struct {
	db pgQuerier
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("store: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithExec(db pgQuerier) *PostgresStore {
	if db == nil {
		panic("store: exec required")
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrKeyRequired
	}
	var data []byte
	err := s.db.QueryRow(ctx, `SELECT data FROM snapshots WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: load %s: %w", key, err)
	}
	return data, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrKeyRequired
	}
	query := `
		INSERT INTO snapshots (key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`
	if _, err := s.db.Exec(ctx, query, key, data); err != nil {
		return fmt.Errorf("store: save %s: %w", key, err)
	}
	return nil
}
