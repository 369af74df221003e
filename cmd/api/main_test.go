package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/referral-scheduler/internal/app/bootstrap"
	appconfig "github.com/wolfman30/referral-scheduler/internal/config"
	httpmiddleware "github.com/wolfman30/referral-scheduler/internal/http/middleware"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

func TestMetricsEndpointExportsSchedulerMetrics(t *testing.T) {
	registry, metricsHandler := setupMetrics()
	cfg := &appconfig.Config{StoreBackend: "memory", EmailProvider: "stub", Timezone: "Europe/London", ReminderPollInterval: time.Minute}
	logger := logging.New("error")

	app, err := bootstrap.BuildApp(context.Background(), cfg, bootstrap.Options{Registerer: registry}, logger)
	require.NoError(t, err)
	defer app.Close()
	app.Metrics.ObserveAppointment("scheduled")

	h := newRouter(app, cfg, logger, metricsHandler, httpmiddleware.NewRateLimiter(1, 1))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), "referral_scheduler_appointments_total")
}
