// Package events publishes appointment lifecycle events for downstream consumers.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type names, also used as the event_type header.
const (
	TypeAppointmentCreated       = "appointment.created"
	TypeAppointmentRescheduled   = "appointment.rescheduled"
	TypeAppointmentStatusChanged = "appointment.status_changed"
	TypeReminderSent             = "appointment.reminder_sent"
)

// AppointmentEventV1 is the payload for every appointment lifecycle event.
type AppointmentEventV1 struct {
	EventID       string     `json:"event_id"`
	EventType     string     `json:"event_type"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	PatientID     *uuid.UUID `json:"patient_id,omitempty"`
	Date          string     `json:"date"`
	Time          string     `json:"time"`
	ServiceType   string     `json:"service_type,omitempty"`
	Status        string     `json:"status"`
	PreviousDate  string     `json:"previous_date,omitempty"`
	PreviousTime  string     `json:"previous_time,omitempty"`
	ReminderType  string     `json:"reminder_type,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// NewAppointmentEvent fills the envelope fields.
func NewAppointmentEvent(eventType string, appointmentID uuid.UUID) AppointmentEventV1 {
	return AppointmentEventV1{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AppointmentID: appointmentID,
		OccurredAt:    time.Now().UTC(),
	}
}
