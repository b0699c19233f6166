package notify

import (
	"context"
	"fmt"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// Service sends the booking lifecycle emails to the patient and the practice.
type Service struct {
	email      EmailSender
	templates  *Templates
	staffEmail string
	logger     *logging.Logger
}

// NewService creates a notification service. staffEmail may be empty, in
// which case staff alerts are skipped.
func NewService(email EmailSender, templates *Templates, staffEmail string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if templates == nil {
		templates = NewTemplates(Practice{})
	}
	return &Service{
		email:      email,
		templates:  templates,
		staffEmail: staffEmail,
		logger:     logger,
	}
}

// NotifyBooked sends the patient confirmation and the staff alert. Each send
// is attempted independently; the error reports how many failed.
func (s *Service) NotifyBooked(ctx context.Context, a *appointments.Appointment) error {
	msgs := []EmailMessage{}
	if a.PatientEmail != "" {
		msgs = append(msgs, s.templates.PatientConfirmation(a))
	}
	if s.staffEmail != "" {
		msgs = append(msgs, s.templates.StaffBookingAlert(s.staffEmail, a))
	}
	return s.sendAll(ctx, "booked", a, msgs)
}

// NotifyRescheduled tells the patient and the practice about a moved appointment.
func (s *Service) NotifyRescheduled(ctx context.Context, a *appointments.Appointment, oldDate, oldTime string) error {
	msgs := []EmailMessage{}
	if a.PatientEmail != "" {
		msgs = append(msgs, s.templates.RescheduleNotice(a, oldDate, oldTime))
	}
	if s.staffEmail != "" {
		msgs = append(msgs, s.templates.StaffRescheduleAlert(s.staffEmail, a, oldDate, oldTime))
	}
	return s.sendAll(ctx, "rescheduled", a, msgs)
}

func (s *Service) sendAll(ctx context.Context, kind string, a *appointments.Appointment, msgs []EmailMessage) error {
	if s.email == nil {
		s.logger.Debug("notify: email sender not configured, skipping", "kind", kind, "appointment_id", a.ID)
		return nil
	}
	var failed int
	for _, msg := range msgs {
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send email", "kind", kind, "error", err, "to", msg.To, "appointment_id", a.ID)
			failed++
			continue
		}
		s.logger.Info("notify: email sent", "kind", kind, "to", msg.To, "appointment_id", a.ID)
	}
	if failed > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", failed)
	}
	return nil
}
