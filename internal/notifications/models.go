// Package notifications stores the in-app messages shown on the patient dashboard.
package notifications

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a notification does not exist or is not visible to the patient.
var ErrNotFound = errors.New("notifications: not found")

// Type categorises a notification for the dashboard icon.
type Type string

const (
	TypeAppointmentReminder     Type = "appointment_reminder"
	TypeAppointmentConfirmation Type = "appointment_confirmation"
	TypeAppointmentCancelled    Type = "appointment_cancelled"
	TypeResultsReady            Type = "results_ready"
	TypeBillingReminder         Type = "billing_reminder"
	TypePaymentReceived         Type = "payment_received"
	TypeLoyaltyPoints           Type = "loyalty_points"
	TypeGeneral                 Type = "general"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeAppointmentReminder, TypeAppointmentConfirmation, TypeAppointmentCancelled,
		TypeResultsReady, TypeBillingReminder, TypePaymentReceived, TypeLoyaltyPoints, TypeGeneral:
		return true
	}
	return false
}

// Notification is one dashboard message. A nil PatientID is a broadcast
// visible to every patient.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
	Type      Type       `json:"notification_type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	IsRead    bool       `json:"is_read"`
	ActionURL string     `json:"action_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Broadcast reports whether the notification targets every patient.
func (n *Notification) Broadcast() bool {
	return n.PatientID == nil
}
