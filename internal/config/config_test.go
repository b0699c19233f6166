package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "CLINIC_TIMEZONE", "WORKING_HOURS_START", "WORKING_HOURS_END", "REMINDER_BATCH_LIMIT", "EMAIL_PROVIDER", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "Africa/Johannesburg", cfg.ClinicTimezone)
	assert.Equal(t, 8, cfg.WorkingHoursStart)
	assert.Equal(t, 17, cfg.WorkingHoursEnd)
	assert.Equal(t, 20, cfg.ReminderBatchLimit)
	assert.Equal(t, "stub", cfg.EmailProvider)
	assert.Equal(t, 10*time.Second, cfg.SlotLockTTL)
	assert.Equal(t, 5*time.Second, cfg.SideEffectTimeout)
	assert.Nil(t, cfg.CORSAllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WORKING_HOURS_START", "9")
	t.Setenv("WORKING_HOURS_END", "15")
	t.Setenv("EMAIL_PROVIDER", " SES ")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://makhandasmiles.co.za, ,http://localhost:5173")
	t.Setenv("JOB_LOCK_TTL", "90s")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")
	t.Setenv("REMINDER_POLL_INTERVAL", "2m")
	t.Setenv("BOOKING_SIDE_EFFECT_TIMEOUT", "750ms")
	t.Setenv("STAFF_EMAIL", "dentist@makhandasmiles.co.za")
	t.Setenv("EMAIL_REPLY_TO", "")

	cfg := Load()

	assert.Equal(t, 9, cfg.WorkingHoursStart)
	assert.Equal(t, 15, cfg.WorkingHoursEnd)
	assert.Equal(t, "ses", cfg.EmailProvider)
	assert.Equal(t, []string{"https://makhandasmiles.co.za", "http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.JobLockTTL)
	assert.InDelta(t, 0.25, cfg.OTelSampleRatio, 1e-9)
	assert.Equal(t, 2*time.Minute, cfg.ReminderPollInterval)
	assert.Equal(t, 750*time.Millisecond, cfg.SideEffectTimeout)
	assert.Equal(t, "dentist@makhandasmiles.co.za", cfg.EmailReplyTo)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("REMINDER_BATCH_LIMIT", "twenty")
	t.Setenv("SLOT_LOCK_TTL", "soon")
	t.Setenv("OTEL_SAMPLING_RATIO", "7")

	cfg := Load()

	assert.Equal(t, 20, cfg.ReminderBatchLimit)
	assert.Equal(t, 10*time.Second, cfg.SlotLockTTL)
	assert.InDelta(t, 1.0, cfg.OTelSampleRatio, 1e-9)
}
