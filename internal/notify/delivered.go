package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeliveryLedger remembers queue messages that were already delivered so a
// redelivered copy is not sent twice.
type DeliveryLedger interface {
	Delivered(ctx context.Context, messageID string) (bool, error)
	MarkDelivered(ctx context.Context, messageID string) error
}

type ledgerQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresDeliveryLedger keeps delivered message ids in delivered_messages.
type PostgresDeliveryLedger struct {
	db ledgerQuerier
}

func NewPostgresDeliveryLedger(pool *pgxpool.Pool) *PostgresDeliveryLedger {
	if pool == nil {
		panic("notify: pgx pool required")
	}
	return &PostgresDeliveryLedger{db: pool}
}

func newDeliveryLedgerWithExec(exec ledgerQuerier) *PostgresDeliveryLedger {
	if exec == nil {
		panic("notify: exec required")
	}
	return &PostgresDeliveryLedger{db: exec}
}

var _ DeliveryLedger = (*PostgresDeliveryLedger)(nil)

// Delivered reports whether messageID has been recorded.
func (l *PostgresDeliveryLedger) Delivered(ctx context.Context, messageID string) (bool, error) {
	var exists int
	err := l.db.QueryRow(ctx, `SELECT 1 FROM delivered_messages WHERE message_id = $1`, messageID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("notify: check delivered: %w", err)
	}
	return true, nil
}

// MarkDelivered records messageID. Recording it twice is not an error.
func (l *PostgresDeliveryLedger) MarkDelivered(ctx context.Context, messageID string) error {
	_, err := l.db.Exec(ctx, `
		INSERT INTO delivered_messages (message_id)
		VALUES ($1)
		ON CONFLICT DO NOTHING
	`, messageID)
	if err != nil {
		return fmt.Errorf("notify: mark delivered: %w", err)
	}
	return nil
}
