package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/referral-scheduler/cmd/mainconfig"
	"github.com/wolfman30/referral-scheduler/internal/api/router"
	"github.com/wolfman30/referral-scheduler/internal/app/bootstrap"
	appconfig "github.com/wolfman30/referral-scheduler/internal/config"
	"github.com/wolfman30/referral-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/referral-scheduler/internal/http/middleware"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

var version = "dev"

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting referral-scheduler API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"store", cfg.StoreBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	registry, metricsHandler := setupMetrics()
	app, err := bootstrap.BuildApp(ctx, cfg, bootstrap.Options{AWS: awsCfg, Registerer: registry}, logger)
	if err != nil {
		logger.Error("failed to build scheduler", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	limiter := httpmiddleware.NewRateLimiter(cfg.ConsentRateLimit, cfg.ConsentRateBurst)
	go limiter.Sweep(ctx, 5*time.Minute)

	if cfg.ReminderWorker {
		go app.ReminderWorker(cfg, nil, logger.Component("reminders")).Run(ctx)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(app, cfg, logger, metricsHandler, limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := app.Workspace.Flush(shutdownCtx); err != nil {
		logger.Error("final flush failed", "error", err)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a private registry with the Go and process collectors
// and the handler that serves it.
func setupMetrics() (*prometheus.Registry, http.Handler) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

func newRouter(app *bootstrap.App, cfg *appconfig.Config, logger *logging.Logger, metricsHandler http.Handler, limiter *httpmiddleware.RateLimiter) http.Handler {
	ws := app.Workspace
	loc := cfg.Location()
	return router.New(&router.Config{
		Logger:             logger,
		Version:            version,
		Organizations:      handlers.NewOrganizationsHandler(ws, app.Organizations, logger),
		Referrals:          handlers.NewReferralsHandler(ws, app.Lifecycle, app.Coordinator, logger),
		Consent:            handlers.NewConsentHandler(ws, app.Lifecycle, logger),
		Availability:       handlers.NewAvailabilityHandler(ws, app.Calendar, loc, logger),
		Appointments:       handlers.NewAppointmentsHandler(app.Coordinator, loc, logger),
		Audit:              handlers.NewAuditHandler(ws, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		StaffAuthSecret:    cfg.AdminJWTSecret,
		ConsentLimiter:     limiter,
	})
}
