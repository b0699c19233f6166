// Package appointments owns the appointment record: its status lifecycle and
// Postgres persistence.
package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks where an appointment is in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ActiveStatuses are the statuses that occupy a slot.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether an appointment in this status blocks its slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransitionTo reports whether staff may move an appointment from s to next.
// Completed and cancelled are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.Valid() || s == next {
		return false
	}
	switch s {
	case StatusPending:
		return true
	case StatusConfirmed:
		return next != StatusPending
	}
	return false
}

// Appointment is one scheduled visit. Patient contact fields are captured at
// booking time and are not normalised onto a patient record.
type Appointment struct {
	ID           uuid.UUID  `json:"id"`
	PatientID    *uuid.UUID `json:"patient_id,omitempty"`
	PatientName  string     `json:"patient_name"`
	PatientEmail string     `json:"patient_email"`
	PatientPhone string     `json:"patient_phone"`
	Date         string     `json:"date"`
	Time         string     `json:"time"`
	ServiceType  string     `json:"service_type"`
	Status       Status     `json:"status"`
	ReminderSent bool       `json:"reminder_sent"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ServiceLabel returns the service type or a fallback for reports and emails.
func (a *Appointment) ServiceLabel(fallback string) string {
	if a.ServiceType == "" {
		return fallback
	}
	return a.ServiceType
}
