// Package bootstrap assembles the scheduler from configuration for the cmd
// binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/referral-scheduler/internal/audit"
	"github.com/wolfman30/referral-scheduler/internal/calendar"
	appconfig "github.com/wolfman30/referral-scheduler/internal/config"
	"github.com/wolfman30/referral-scheduler/internal/notify"
	"github.com/wolfman30/referral-scheduler/internal/observability/metrics"
	"github.com/wolfman30/referral-scheduler/internal/organizations"
	"github.com/wolfman30/referral-scheduler/internal/referrals"
	"github.com/wolfman30/referral-scheduler/internal/reminders"
	"github.com/wolfman30/referral-scheduler/internal/scheduling"
	"github.com/wolfman30/referral-scheduler/internal/store"
	"github.com/wolfman30/referral-scheduler/internal/workspace"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// App is the fully wired engine shared by the binaries.
type App struct {
	Workspace     *workspace.Workspace
	Organizations *organizations.Service
	Lifecycle     *referrals.Lifecycle
	Calendar      *calendar.Service
	Coordinator   *scheduling.Coordinator
	Metrics       *metrics.SchedulerMetrics
	Notifier      notify.Notifier
	Templates     notify.Templates

	closers []func()
}

// Options carries what BuildApp cannot derive from config.
type Options struct {
	AWS        aws.Config
	Registerer prometheus.Registerer
	// Store overrides the configured backend, mainly for tests.
	Store store.Store
	// Notifier overrides the configured delivery path.
	Notifier notify.Notifier
}

// BuildApp opens the store, loads the workspace and wires every service.
func BuildApp(ctx context.Context, cfg *appconfig.Config, opts Options, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	app := &App{}

	st := opts.Store
	if st == nil {
		built, closer, err := BuildStore(ctx, cfg, opts.AWS, logger)
		if err != nil {
			return nil, err
		}
		st = built
		app.closers = append(app.closers, closer)
	}

	sinks, closeSinks, err := BuildAuditSinks(ctx, cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, closeSinks)

	if opts.Registerer != nil {
		app.Metrics = metrics.NewSchedulerMetrics(opts.Registerer)
	}

	ws := workspace.New(st, workspace.Collections{
		Calendar:  calendar.NewRegistry(cfg.PractitionerName, cfg.PractitionerEmail),
		Audit:     audit.NewLog(logger, sinks...),
		Reminders: reminders.NewQueue(reminders.WithMaxAttempts(cfg.ReminderMaxAttempts)),
	}, logger)
	if err := ws.Init(ctx); err != nil {
		app.Close()
		return nil, err
	}
	app.Workspace = ws

	app.Notifier = opts.Notifier
	if app.Notifier == nil {
		app.Notifier = BuildNotifier(cfg, opts.AWS, ws.Audit, app.Metrics, logger)
	}
	app.Templates = BuildTemplates(cfg)

	ledger := organizations.NewLedger(logger, app.Metrics)
	app.Organizations = organizations.NewService(ws.Organizations, ws.Audit, logger)
	app.Lifecycle = referrals.NewLifecycle(ledger, ws.Referrals, ws.Audit, logger)
	app.Calendar = calendar.NewService(ws.Calendar, ws.Audit, logger)
	app.Coordinator = scheduling.NewCoordinator(ws, app.Lifecycle, app.Notifier, app.Templates, logger,
		scheduling.WithLeadTime(cfg.ReminderLeadTime),
		scheduling.WithMetrics(app.Metrics),
	)
	return app, nil
}

// ReminderWorker builds a worker that delivers through notifier and flushes
// the workspace after each pass.
func (a *App) ReminderWorker(cfg *appconfig.Config, notifier notify.Notifier, logger *logging.Logger) *reminders.Worker {
	if notifier == nil {
		notifier = a.Notifier
	}
	return reminders.NewWorker(a.Workspace.Reminders, notifier, logger, a.Metrics).
		WithInterval(cfg.ReminderPollInterval).
		WithCommit(a.Workspace.Flush)
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
