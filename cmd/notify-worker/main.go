// Command notify-worker delivers notifications queued on SQS by the API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/referral-scheduler/cmd/mainconfig"
	"github.com/wolfman30/referral-scheduler/internal/app/bootstrap"
	"github.com/wolfman30/referral-scheduler/internal/audit"
	appconfig "github.com/wolfman30/referral-scheduler/internal/config"
	"github.com/wolfman30/referral-scheduler/internal/notify"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).Component("notify-worker")

	if cfg.NotifyQueueURL == "" {
		logger.Error("NOTIFY_QUEUE_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	deliveries, closeSinks, err := deliveryLog(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open audit sinks", "error", err)
		os.Exit(1)
	}
	defer closeSinks()

	dispatcher := bootstrap.BuildDispatcher(cfg, awsCfg, deliveries, nil, logger)
	consumer := notify.NewQueueConsumer(sqs.NewFromConfig(awsCfg), cfg.NotifyQueueURL, dispatcher, logger).
		WithAfterBatch(deliveries.Publish)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open delivery ledger", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		consumer.WithDeliveryLedger(notify.NewPostgresDeliveryLedger(pool))
		logger.Info("delivery ledger enabled")
	}

	logger.Info("notify worker started", "queue_url", cfg.NotifyQueueURL)
	consumer.Run(ctx)

	if err := deliveries.Publish(context.Background()); err != nil {
		logger.Error("final audit publish failed", "error", err)
	}
	logger.Info("notify worker stopped")
}

// deliveryLog records SEND_COMMUNICATION entries for the audit mirrors only.
// The worker never writes the workspace snapshot, so it cannot overwrite
// state the API holds.
func deliveryLog(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*audit.Log, func(), error) {
	sinks, closer, err := bootstrap.BuildAuditSinks(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if len(sinks) == 0 {
		logger.Warn("no audit mirror configured; delivery records are kept in memory only")
	}
	return audit.NewLog(logger, sinks...), closer, nil
}
