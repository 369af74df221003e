// Package router maps the scheduler's HTTP surface onto its handlers.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/referral-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/referral-scheduler/internal/http/middleware"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger  *logging.Logger
	Version string

	Organizations *handlers.OrganizationsHandler
	Referrals     *handlers.ReferralsHandler
	Consent       *handlers.ConsentHandler
	Availability  *handlers.AvailabilityHandler
	Appointments  *handlers.AppointmentsHandler
	Audit         *handlers.AuditHandler

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// StaffAuthSecret guards every non-public route when set.
	StaffAuthSecret string
	// ConsentLimiter throttles the public consent link when set.
	ConsentLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		public.Get("/health", handlers.Health(cfg.Version))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Consent != nil {
			public.Route("/consent/{referralID}", func(c chi.Router) {
				if cfg.ConsentLimiter != nil {
					c.Use(httpmiddleware.RateLimit(cfg.ConsentLimiter))
				}
				c.Get("/", cfg.Consent.Show)
				c.Post("/", cfg.Consent.Submit)
			})
		}
	})

	r.Group(func(staff chi.Router) {
		if cfg.StaffAuthSecret != "" {
			staff.Use(httpmiddleware.StaffJWT(cfg.StaffAuthSecret))
		} else if cfg.Logger != nil {
			cfg.Logger.Warn("staff routes are unauthenticated; set ADMIN_JWT_SECRET to protect them")
		}

		if h := cfg.Organizations; h != nil {
			staff.Route("/organizations", func(o chi.Router) {
				o.Post("/", h.Create)
				o.Get("/", h.List)
				o.Get("/stats", h.Stats)
				o.Post("/{id}/deactivate", h.Deactivate)
			})
		}
		if h := cfg.Referrals; h != nil {
			staff.Route("/referrals", func(rr chi.Router) {
				rr.Post("/", h.Create)
				rr.Get("/", h.List)
				rr.Get("/{id}", h.Get)
				rr.Post("/{id}/consent-request", h.RequestConsent)
				rr.Post("/{id}/withdraw", h.Withdraw)
			})
		}
		if h := cfg.Availability; h != nil {
			staff.Put("/availability/{day}", h.SetWindow)
			staff.Post("/availability/blocks", h.Block)
			staff.Get("/availability/slots", h.Slots)
			staff.Get("/calendar", h.Week)
		}
		if h := cfg.Appointments; h != nil {
			staff.Route("/appointments", func(a chi.Router) {
				a.Post("/", h.Schedule)
				a.Post("/{id}/cancel", h.Cancel)
				a.Post("/{id}/complete", h.Complete)
			})
		}
		if h := cfg.Audit; h != nil {
			staff.Get("/audit", h.List)
		}
	})

	return r
}
