package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
	"github.com/makhandasmiles/clinic-api/internal/clinic"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// StagedTypes are the reminders planned for every booking.
var StagedTypes = []Type{Type24h, Type2h}

// Scheduler creates the staged reminder rows for an appointment.
type Scheduler struct {
	store    *Store
	calendar *clinic.Calendar
	logger   *logging.Logger
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(store *Store, calendar *clinic.Calendar, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if calendar == nil {
		calendar = clinic.NewCalendar(clinic.DefaultTimezone)
	}
	return &Scheduler{store: store, calendar: calendar, logger: logger}
}

// PlannedReminder is one stage and when it should fire.
type PlannedReminder struct {
	Type Type
	At   time.Time
}

// PlanTimes computes the staged send times for a slot, dropping stages whose
// time has already passed at now.
func PlanTimes(start, now time.Time) []PlannedReminder {
	var out []PlannedReminder
	for _, typ := range StagedTypes {
		at := start.Add(-typ.Lead())
		if !at.After(now) {
			continue
		}
		out = append(out, PlannedReminder{Type: typ, At: at})
	}
	return out
}

// Schedule creates the 24h and 2h reminders for a new appointment and returns
// how many were written.
func (s *Scheduler) Schedule(ctx context.Context, a *appointments.Appointment) (int, error) {
	start, err := clinic.SlotStart(a.Date, a.Time, s.calendar.Location())
	if err != nil {
		return 0, fmt.Errorf("reminders: schedule: %w", err)
	}

	created := 0
	for _, p := range PlanTimes(start, s.calendar.Now()) {
		ok, err := s.store.Create(ctx, a.ID, p.Type, p.At)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	s.logger.Info("reminders: scheduled", "appointment_id", a.ID, "count", created, "start", start.Format(time.RFC3339))
	return created, nil
}

// Reschedule drops the pending reminders of a moved appointment and re-arms
// the stages that are still ahead of the new slot.
func (s *Scheduler) Reschedule(ctx context.Context, a *appointments.Appointment) (int, error) {
	start, err := clinic.SlotStart(a.Date, a.Time, s.calendar.Location())
	if err != nil {
		return 0, fmt.Errorf("reminders: reschedule: %w", err)
	}
	if _, err := s.store.DeletePending(ctx, a.ID); err != nil {
		return 0, err
	}

	planned := PlanTimes(start, s.calendar.Now())
	for _, p := range planned {
		if err := s.store.Rearm(ctx, a.ID, p.Type, p.At); err != nil {
			return 0, err
		}
	}
	s.logger.Info("reminders: rescheduled", "appointment_id", a.ID, "count", len(planned))
	return len(planned), nil
}

// Cancel removes the pending reminders of a cancelled appointment.
func (s *Scheduler) Cancel(ctx context.Context, appointmentID uuid.UUID) error {
	n, err := s.store.DeletePending(ctx, appointmentID)
	if err != nil {
		return err
	}
	s.logger.Info("reminders: cancelled", "appointment_id", appointmentID, "count", n)
	return nil
}
