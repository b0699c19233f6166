package booking

import (
	"context"
	"fmt"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
	"github.com/makhandasmiles/clinic-api/internal/events"
	"github.com/makhandasmiles/clinic-api/internal/notifications"
	"github.com/makhandasmiles/clinic-api/internal/notify"
)

// afterBooked runs the best-effort steps that follow a new booking. Each
// failure is logged and counted, never returned.
func (w *Writer) afterBooked(ctx context.Context, a *appointments.Appointment) {
	w.notifyPatient(ctx, a, notifications.TypeAppointmentConfirmation, "Appointment Pending Confirmation",
		fmt.Sprintf("Your appointment for %s on %s at %s has been received and is pending confirmation.",
			a.ServiceLabel(notify.DefaultService), a.Date, a.Time))

	if w.notifier != nil {
		if err := w.notifier.NotifyBooked(ctx, a); err != nil {
			w.sideEffectFailed("email", a, err)
		}
	}
	if w.reminders != nil {
		if _, err := w.reminders.Schedule(ctx, a); err != nil {
			w.sideEffectFailed("reminders", a, err)
		}
	}
	w.publish(ctx, events.TypeAppointmentCreated, a, func(*events.AppointmentEventV1) {})
}

func (w *Writer) afterRescheduled(ctx context.Context, a *appointments.Appointment, oldDate, oldTime string) {
	w.notifyPatient(ctx, a, notifications.TypeAppointmentReminder, "Appointment Rescheduled",
		fmt.Sprintf("Your appointment has moved from %s at %s to %s at %s.", oldDate, oldTime, a.Date, a.Time))

	if w.notifier != nil {
		if err := w.notifier.NotifyRescheduled(ctx, a, oldDate, oldTime); err != nil {
			w.sideEffectFailed("email", a, err)
		}
	}
	if w.reminders != nil {
		if _, err := w.reminders.Reschedule(ctx, a); err != nil {
			w.sideEffectFailed("reminders", a, err)
		}
	}
	w.publish(ctx, events.TypeAppointmentRescheduled, a, func(evt *events.AppointmentEventV1) {
		evt.PreviousDate = oldDate
		evt.PreviousTime = oldTime
	})
}

func (w *Writer) afterStatusChange(ctx context.Context, a *appointments.Appointment) {
	switch a.Status {
	case appointments.StatusConfirmed:
		w.notifyPatient(ctx, a, notifications.TypeAppointmentConfirmation, "Appointment Confirmed",
			fmt.Sprintf("Your appointment on %s at %s is confirmed.", a.Date, a.Time))
	case appointments.StatusCancelled:
		w.notifyPatient(ctx, a, notifications.TypeAppointmentCancelled, "Appointment Cancelled",
			fmt.Sprintf("Your appointment on %s at %s has been cancelled.", a.Date, a.Time))
		if w.reminders != nil {
			if err := w.reminders.Cancel(ctx, a.ID); err != nil {
				w.sideEffectFailed("reminders", a, err)
			}
		}
	}
	w.publish(ctx, events.TypeAppointmentStatusChanged, a, func(*events.AppointmentEventV1) {})
}

// notifyPatient stores a dashboard notification for patients with an account.
func (w *Writer) notifyPatient(ctx context.Context, a *appointments.Appointment, typ notifications.Type, title, message string) {
	if w.notifications == nil || a.PatientID == nil {
		return
	}
	n := &notifications.Notification{
		PatientID: a.PatientID,
		Type:      typ,
		Title:     title,
		Message:   message,
	}
	if err := w.notifications.Create(ctx, n); err != nil {
		w.sideEffectFailed("notification", a, err)
	}
}

func (w *Writer) publish(ctx context.Context, eventType string, a *appointments.Appointment, decorate func(*events.AppointmentEventV1)) {
	evt := events.NewAppointmentEvent(eventType, a.ID)
	evt.PatientID = a.PatientID
	evt.Date = a.Date
	evt.Time = a.Time
	evt.ServiceType = a.ServiceType
	evt.Status = string(a.Status)
	decorate(&evt)
	if err := w.events.Publish(ctx, evt); err != nil {
		w.sideEffectFailed("event", a, err)
	}
}

func (w *Writer) sideEffectFailed(effect string, a *appointments.Appointment, err error) {
	w.metrics.ObserveSideEffectFailure(effect)
	w.logger.Warn("booking: side effect failed", "effect", effect, "appointment_id", a.ID, "error", err)
}
