package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Snapshot store
	StoreBackend   string
	StoreKeyPrefix string
	DatabaseURL    string
	SQLitePath     string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	SnapshotBucket string
	SnapshotTable  string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Notifications
	NotifyQueueURL    string
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESConfigSet      string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFromNumber  string
	ConsentBaseURL    string
	OrganizationName  string
	Timezone          string

	// Audit mirrors
	AuditDatabaseURL  string
	AuditKafkaBrokers string
	AuditKafkaTopic   string

	// Scheduling
	ReminderPollInterval time.Duration
	ReminderLeadTime     time.Duration
	ReminderMaxAttempts  int
	// ReminderWorker runs reminder delivery inside the API process. Turn it
	// off when reminder-lambda is scheduled instead.
	ReminderWorker bool
	PractitionerName     string
	PractitionerEmail    string

	// HTTP surface
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	ConsentRateLimit   float64
	ConsentRateBurst   int
}

// Load reads configuration from environment variables, after applying a
// .env file from the working directory when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend:   strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", "memory"))),
		StoreKeyPrefix: getEnv("STORE_KEY_PREFIX", "tcs_"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SQLitePath:     getEnv("SQLITE_PATH", "scheduler.db"),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		SnapshotBucket: getEnv("SNAPSHOT_BUCKET", ""),
		SnapshotTable:  getEnv("SNAPSHOT_TABLE", "scheduler_snapshots"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		NotifyQueueURL:    getEnv("NOTIFY_QUEUE_URL", ""),
		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "The Children's Society"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESConfigSet:      getEnv("SES_CONFIGURATION_SET", ""),
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:  getEnv("TWILIO_FROM_NUMBER", ""),
		ConsentBaseURL:    getEnv("CONSENT_BASE_URL", ""),
		OrganizationName:  getEnv("ORGANIZATION_NAME", "The Children's Society"),
		Timezone:          getEnv("TIMEZONE", "Europe/London"),

		AuditDatabaseURL:  getEnv("AUDIT_DATABASE_URL", ""),
		AuditKafkaBrokers: getEnv("AUDIT_KAFKA_BROKERS", ""),
		AuditKafkaTopic:   getEnv("AUDIT_KAFKA_TOPIC", "scheduler.audit"),

		ReminderPollInterval: getEnvAsDuration("REMINDER_POLL_INTERVAL", time.Minute),
		ReminderLeadTime:     getEnvAsDuration("REMINDER_LEAD_TIME", 24*time.Hour),
		ReminderMaxAttempts:  getEnvAsInt("REMINDER_MAX_ATTEMPTS", 3),
		ReminderWorker:       getEnvAsBool("REMINDER_WORKER", true),
		PractitionerName:     getEnv("PRACTITIONER_NAME", "Default Therapist"),
		PractitionerEmail:    getEnv("PRACTITIONER_EMAIL", "therapist@example.com"),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		ConsentRateLimit:   getEnvAsFloat("CONSENT_RATE_LIMIT", 1),
		ConsentRateBurst:   getEnvAsInt("CONSENT_RATE_BURST", 5),
	}
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
