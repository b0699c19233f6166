package reminders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
	"github.com/makhandasmiles/clinic-api/internal/clinic"
	"github.com/makhandasmiles/clinic-api/internal/notify"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// AppointmentSource is the slice of the appointment repository the daily scan needs.
type AppointmentSource interface {
	ListDueForReminder(ctx context.Context, date string, limit int) ([]appointments.Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error)
}

// DailyResult is the in-band report of one daily scan.
type DailyResult struct {
	Success bool   `json:"success"`
	Date    string `json:"date"`
	Sent    int    `json:"sent"`
	Total   int    `json:"total"`
	Failed  int    `json:"failed"`
	Message string `json:"message,omitempty"`
}

// DailyScanner sends the same-day reminder to confirmed appointments.
type DailyScanner struct {
	appts     AppointmentSource
	sender    notify.EmailSender
	templates *notify.Templates
	calendar  *clinic.Calendar
	limit     int
	logger    *logging.Logger
}

// NewDailyScanner creates the same-day reminder scan.
func NewDailyScanner(appts AppointmentSource, sender notify.EmailSender, templates *notify.Templates, calendar *clinic.Calendar, limit int, logger *logging.Logger) *DailyScanner {
	if logger == nil {
		logger = logging.Default()
	}
	if calendar == nil {
		calendar = clinic.NewCalendar(clinic.DefaultTimezone)
	}
	if templates == nil {
		templates = notify.NewTemplates(notify.Practice{})
	}
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	return &DailyScanner{appts: appts, sender: sender, templates: templates, calendar: calendar, limit: limit, logger: logger}
}

// Run reminds every confirmed, not-yet-reminded appointment on the clinic's
// current date. Per-appointment send failures are counted, never returned;
// only a failure to load the batch is an error.
func (s *DailyScanner) Run(ctx context.Context) (DailyResult, error) {
	today := s.calendar.Today()
	result := DailyResult{Success: true, Date: today}

	due, err := s.appts.ListDueForReminder(ctx, today, s.limit)
	if err != nil {
		return DailyResult{Date: today}, fmt.Errorf("reminders: daily scan: %w", err)
	}
	result.Total = len(due)
	if len(due) == 0 {
		result.Message = "No reminders to send"
		return result, nil
	}

	s.logger.Info("reminders: daily scan", "date", today, "count", len(due))
	for i := range due {
		a := &due[i]
		if err := s.sender.Send(ctx, s.templates.DayOfReminder(a)); err != nil {
			s.logger.Error("reminders: day-of send failed", "appointment_id", a.ID, "error", err)
			result.Failed++
			continue
		}
		marked, err := s.appts.MarkReminderSent(ctx, a.ID)
		if err != nil {
			// Delivered but not recorded; the conditional update keeps a
			// later run from marking twice, but it may resend.
			s.logger.Error("reminders: mark reminder sent", "appointment_id", a.ID, "error", err)
		} else if !marked {
			s.logger.Warn("reminders: reminder already marked by another run", "appointment_id", a.ID)
		}
		result.Sent++
	}

	s.logger.Info("reminders: daily scan complete", "date", today, "sent", result.Sent, "failed", result.Failed, "total", result.Total)
	return result, nil
}

// ItemCounts reports per-item outcomes for job metrics.
func (r DailyResult) ItemCounts() map[string]int {
	return map[string]int{"sent": r.Sent, "failed": r.Failed}
}
