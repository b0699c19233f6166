package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
	"github.com/makhandasmiles/clinic-api/internal/clinic"
	"github.com/makhandasmiles/clinic-api/internal/notify"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// ReportWindow is how far back the weekly report looks.
const ReportWindow = 7 * 24 * time.Hour

// ErrNoRecipient is returned when no staff address is configured.
var ErrNoRecipient = errors.New("digest: staff email not configured")

// AppointmentLister loads appointments by creation time.
type AppointmentLister interface {
	ListCreatedBetween(ctx context.Context, start, end time.Time) ([]appointments.Appointment, error)
}

// ConversationCounter counts assistant conversations.
type ConversationCounter interface {
	CountConversations(ctx context.Context, start, end time.Time) (int, error)
}

// WeeklyReporter emails the staff a summary of the last seven days.
type WeeklyReporter struct {
	appts         AppointmentLister
	conversations ConversationCounter
	sender        notify.EmailSender
	practice      notify.Practice
	calendar      *clinic.Calendar
	staffEmail    string
	archive       *Archive
	logger        *logging.Logger
}

// NewWeeklyReporter creates the weekly digest. archive may be nil.
func NewWeeklyReporter(appts AppointmentLister, conversations ConversationCounter, sender notify.EmailSender, practice notify.Practice, calendar *clinic.Calendar, staffEmail string, archive *Archive, logger *logging.Logger) *WeeklyReporter {
	if logger == nil {
		logger = logging.Default()
	}
	if calendar == nil {
		calendar = clinic.NewCalendar(clinic.DefaultTimezone)
	}
	return &WeeklyReporter{
		appts:         appts,
		conversations: conversations,
		sender:        sender,
		practice:      notify.NewTemplates(practice).Practice(),
		calendar:      calendar,
		staffEmail:    staffEmail,
		archive:       archive,
		logger:        logger,
	}
}

// Run builds and sends the report for [now-7d, now].
func (r *WeeklyReporter) Run(ctx context.Context) (WeeklyResult, error) {
	end := r.calendar.Now()
	start := end.Add(-ReportWindow)
	period := Period{Start: clinic.FormatDate(start), End: clinic.FormatDate(end)}

	if r.staffEmail == "" {
		return WeeklyResult{Period: period}, ErrNoRecipient
	}

	appts, err := r.appts.ListCreatedBetween(ctx, start, end)
	if err != nil {
		return WeeklyResult{Period: period}, fmt.Errorf("digest: weekly appointments: %w", err)
	}
	conversations, err := r.conversations.CountConversations(ctx, start, end)
	if err != nil {
		return WeeklyResult{Period: period}, fmt.Errorf("digest: weekly conversations: %w", err)
	}

	stats := ComputeStats(appts, conversations)
	r.logger.Info("digest: weekly report", "start", period.Start, "end", period.End, "appointments", stats.TotalAppointments)

	msg := WeeklyReportEmail(r.staffEmail, r.practice, stats, appts, start, end, end)
	if err := r.sender.Send(ctx, msg); err != nil {
		return WeeklyResult{Stats: stats, Period: period}, fmt.Errorf("digest: send weekly report: %w", err)
	}

	result := WeeklyResult{Success: true, Stats: stats, Period: period}
	if r.archive.Enabled() {
		if err := r.archive.SaveWeekly(ctx, result, msg.HTML); err != nil {
			r.logger.Warn("digest: archive weekly report", "error", err)
		} else {
			result.Archived = true
		}
	}
	return result, nil
}
