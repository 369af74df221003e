// Command reminder-lambda sends due appointment reminders on a schedule,
// for deployments that do not run the API's in-process reminder worker.
package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/referral-scheduler/cmd/mainconfig"
	"github.com/wolfman30/referral-scheduler/internal/app/bootstrap"
	appconfig "github.com/wolfman30/referral-scheduler/internal/config"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

type result struct {
	Sent    int `json:"sent"`
	Pending int `json:"pending"`
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).Component("reminder-lambda")
	lambda.Start(func(ctx context.Context, evt events.CloudWatchEvent) (result, error) {
		logger.Info("reminder pass triggered", "event_id", evt.ID, "time", evt.Time)
		return handle(ctx, cfg, bootstrap.Options{}, logger)
	})
}

// handle loads the workspace, sends whatever is due and persists the result.
// A fresh load per invocation keeps a warm container from flushing stale state.
func handle(ctx context.Context, cfg *appconfig.Config, opts bootstrap.Options, logger *logging.Logger) (result, error) {
	if opts.Store == nil {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return result{}, fmt.Errorf("load AWS config: %w", err)
		}
		opts.AWS = awsCfg
	}
	app, err := bootstrap.BuildApp(ctx, cfg, opts, logger)
	if err != nil {
		return result{}, err
	}
	defer app.Close()

	sent, err := app.ReminderWorker(cfg, nil, logger).ProcessDue(ctx)
	if err != nil {
		return result{Sent: sent}, err
	}
	return result{Sent: sent, Pending: app.Workspace.Reminders.Pending()}, nil
}
