package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/wolfman30/referral-scheduler/internal/audit"
	appconfig "github.com/wolfman30/referral-scheduler/internal/config"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// BuildAuditSinks opens the optional SQL mirror and Kafka stream for audit
// entries. The closer releases whatever was opened.
func BuildAuditSinks(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) ([]audit.Sink, func(), error) {
	var (
		sinks   []audit.Sink
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.AuditDatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.AuditDatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: open audit db: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("bootstrap: ping audit db: %w", err)
		}
		sinks = append(sinks, audit.NewSQLSink(db))
		closers = append(closers, func() { _ = db.Close() })
		logger.Info("audit SQL mirror enabled")
	}

	if cfg.AuditKafkaBrokers != "" {
		publisher := audit.NewKafkaPublisher(audit.NewKafkaWriter(cfg.AuditKafkaBrokers, cfg.AuditKafkaTopic))
		sinks = append(sinks, publisher)
		closers = append(closers, func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("audit kafka writer close failed", "error", err)
			}
		})
		logger.Info("audit kafka stream enabled", "topic", cfg.AuditKafkaTopic)
	}

	return sinks, closeAll, nil
}
