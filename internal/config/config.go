package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Email delivery: "ses", "sendgrid" or "stub".
	EmailProvider    string
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string
	StaffEmail       string

	// EmailReplyTo receives patient replies; defaults to StaffEmail.
	EmailReplyTo        string
	SESConfigurationSet string

	PracticeName    string
	PracticePhone   string
	PracticeAddress string

	CronSecret         string
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	BookingRateLimit   int

	// Scheduling
	ClinicTimezone     string
	WorkingHoursStart  int
	WorkingHoursEnd    int
	ReminderBatchLimit int
	SlotLockTTL        time.Duration
	JobLockTTL         time.Duration
	SideEffectTimeout  time.Duration

	// ReminderPollInterval runs send-reminders inside the API process when
	// positive. Zero leaves it to the external scheduler.
	ReminderPollInterval time.Duration

	ReportArchiveBucket string

	KafkaBrokers string
	KafkaTopic   string

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "af-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Makhanda Smiles"),
		StaffEmail:       getEnv("STAFF_EMAIL", ""),

		EmailReplyTo:        getEnv("EMAIL_REPLY_TO", getEnv("STAFF_EMAIL", "")),
		SESConfigurationSet: getEnv("SES_CONFIGURATION_SET", ""),

		PracticeName:    getEnv("PRACTICE_NAME", "Makhanda Smiles"),
		PracticePhone:   getEnv("PRACTICE_PHONE", ""),
		PracticeAddress: getEnv("PRACTICE_ADDRESS", "Grahamstown, Eastern Cape"),

		CronSecret:         getEnv("CRON_SECRET", ""),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		BookingRateLimit:   getEnvAsInt("BOOKING_RATE_LIMIT_PER_MINUTE", 10),

		ClinicTimezone:     getEnv("CLINIC_TIMEZONE", "Africa/Johannesburg"),
		WorkingHoursStart:  getEnvAsInt("WORKING_HOURS_START", 8),
		WorkingHoursEnd:    getEnvAsInt("WORKING_HOURS_END", 17),
		ReminderBatchLimit: getEnvAsInt("REMINDER_BATCH_LIMIT", 20),
		SlotLockTTL:        getEnvAsDuration("SLOT_LOCK_TTL", 10*time.Second),
		JobLockTTL:         getEnvAsDuration("JOB_LOCK_TTL", 5*time.Minute),
		SideEffectTimeout:  getEnvAsDuration("BOOKING_SIDE_EFFECT_TIMEOUT", 5*time.Second),

		ReminderPollInterval: getEnvAsDuration("REMINDER_POLL_INTERVAL", 0),

		ReportArchiveBucket: getEnv("REPORT_ARCHIVE_BUCKET", ""),

		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_APPOINTMENTS_TOPIC", "clinic.appointments.v1"),

		OTelEnabled:     getEnvAsBool("OTEL_ENABLED", false),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelSampleRatio: getEnvAsFloat("OTEL_SAMPLING_RATIO", 1),
	}
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
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil && value >= 0 && value <= 1 {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
