// Package reminders schedules and delivers appointment reminder emails: the
// same-day pass over confirmed appointments and the staged 24h/2h queue.
package reminders

import (
	"time"

	"github.com/google/uuid"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
)

// Type is the reminder stage relative to the appointment start.
type Type string

const (
	Type24h   Type = "24h"
	Type2h    Type = "2h"
	TypeDayOf Type = "day_of"
)

// Lead returns how long before the start the stage fires. Day-of reminders
// are driven by the daily scan and have no fixed lead.
func (t Type) Lead() time.Duration {
	switch t {
	case Type24h:
		return 24 * time.Hour
	case Type2h:
		return 2 * time.Hour
	}
	return 0
}

// Status tracks the lifecycle of a reminder row. Sent and failed are terminal.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusSent || s == StatusFailed
}

// Reminder is one scheduled send for an (appointment, type) pair.
type Reminder struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	Type          Type       `json:"reminder_type"`
	ScheduledTime time.Time  `json:"scheduled_time"`
	Status        Status     `json:"status"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// DueReminder pairs a reminder with the appointment fields needed to render it.
type DueReminder struct {
	Reminder
	Appointment appointments.Appointment `json:"appointment"`
}

// Stats aggregates reminder outcomes for the admin dashboard.
type Stats struct {
	Pending      int64   `json:"pending"`
	Sent         int64   `json:"sent"`
	Failed       int64   `json:"failed"`
	Total        int64   `json:"total"`
	DeliveryRate float64 `json:"delivery_rate"`
}
