package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("STORE_KEY_PREFIX", "")
	t.Setenv("REMINDER_LEAD_TIME", "")
	t.Setenv("ORGANIZATION_NAME", "")
	t.Setenv("REMINDER_WORKER", "")
	t.Setenv("REMINDER_MAX_ATTEMPTS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.StoreBackend != "memory" {
		t.Fatalf("expected memory store by default, got %s", cfg.StoreBackend)
	}
	if cfg.StoreKeyPrefix != "tcs_" {
		t.Fatalf("expected default key prefix, got %s", cfg.StoreKeyPrefix)
	}
	if cfg.ReminderLeadTime != 24*time.Hour {
		t.Fatalf("expected 24h reminder lead time, got %s", cfg.ReminderLeadTime)
	}
	if !cfg.ReminderWorker {
		t.Fatalf("expected in-process reminder worker by default")
	}
	if cfg.ReminderMaxAttempts != 3 {
		t.Fatalf("expected 3 reminder attempts, got %d", cfg.ReminderMaxAttempts)
	}
	if cfg.OrganizationName != "The Children's Society" {
		t.Fatalf("expected default sign-off, got %s", cfg.OrganizationName)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("STORE_BACKEND", " Postgres ")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("REMINDER_LEAD_TIME", "2h")
	t.Setenv("REMINDER_POLL_INTERVAL", "not-a-duration")
	t.Setenv("REMINDER_MAX_ATTEMPTS", "5")
	t.Setenv("EMAIL_PROVIDER", "SES")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.StoreBackend != "postgres" {
		t.Fatalf("expected normalized backend, got %q", cfg.StoreBackend)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.ReminderLeadTime != 2*time.Hour {
		t.Fatalf("expected lead time override, got %s", cfg.ReminderLeadTime)
	}
	if cfg.ReminderPollInterval != time.Minute {
		t.Fatalf("expected invalid duration to fall back, got %s", cfg.ReminderPollInterval)
	}
	if cfg.ReminderMaxAttempts != 5 {
		t.Fatalf("expected attempts override, got %d", cfg.ReminderMaxAttempts)
	}
	if cfg.EmailProvider != "ses" {
		t.Fatalf("expected lowercased provider, got %s", cfg.EmailProvider)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Nowhere/Special"}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
}

func TestLoadHTTPSettings(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("CONSENT_RATE_LIMIT", "0.5")
	t.Setenv("CONSENT_RATE_BURST", "")
	cfg := Load()
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.ConsentRateLimit != 0.5 {
		t.Fatalf("expected rate 0.5, got %v", cfg.ConsentRateLimit)
	}
	if cfg.ConsentRateBurst != 5 {
		t.Fatalf("expected default burst, got %d", cfg.ConsentRateBurst)
	}
}
