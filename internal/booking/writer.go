package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
	"github.com/makhandasmiles/clinic-api/internal/availability"
	"github.com/makhandasmiles/clinic-api/internal/clinic"
	"github.com/makhandasmiles/clinic-api/internal/events"
	"github.com/makhandasmiles/clinic-api/internal/locks"
	"github.com/makhandasmiles/clinic-api/internal/notifications"
	"github.com/makhandasmiles/clinic-api/internal/observability/metrics"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

var tracer = otel.Tracer("clinic.internal.booking")

// DefaultSlotLockTTL bounds how long a booking holds its slot lock.
const DefaultSlotLockTTL = 10 * time.Second

// DefaultSideEffectTimeout bounds the notifications, emails, reminder rows and
// events that follow a committed write.
const DefaultSideEffectTimeout = 5 * time.Second

// Repository is the appointment persistence the writer needs.
type Repository interface {
	Create(ctx context.Context, a *appointments.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error)
	ListByDate(ctx context.Context, date string) ([]appointments.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next appointments.Status) (*appointments.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, date, clock string) (*appointments.Appointment, error)
}

// SlotChecker answers whether a slot is free.
type SlotChecker interface {
	Hours() availability.WorkingHours
	IsAvailable(ctx context.Context, date, clock string) (bool, error)
}

// NotificationWriter stores dashboard notifications.
type NotificationWriter interface {
	Create(ctx context.Context, n *notifications.Notification) error
}

// Notifier sends the booking and reschedule emails.
type Notifier interface {
	NotifyBooked(ctx context.Context, a *appointments.Appointment) error
	NotifyRescheduled(ctx context.Context, a *appointments.Appointment, oldDate, oldTime string) error
}

// ReminderPlanner keeps the staged reminder rows in step with the appointment.
type ReminderPlanner interface {
	Schedule(ctx context.Context, a *appointments.Appointment) (int, error)
	Reschedule(ctx context.Context, a *appointments.Appointment) (int, error)
	Cancel(ctx context.Context, appointmentID uuid.UUID) error
}

// Deps wires a Writer. Appointments and Slots are required; the side-effect
// collaborators are optional.
type Deps struct {
	Appointments  Repository
	Slots         SlotChecker
	Locker        locks.Locker
	SlotLockTTL   time.Duration
	Notifications NotificationWriter
	Notifier      Notifier
	Reminders     ReminderPlanner
	Events        events.Publisher
	Metrics       *metrics.BookingMetrics
	Calendar      *clinic.Calendar
	Logger        *logging.Logger

	// SideEffectTimeout defaults to DefaultSideEffectTimeout.
	SideEffectTimeout time.Duration
}

// Writer creates and updates appointments.
type Writer struct {
	repo          Repository
	slots         SlotChecker
	locker        locks.Locker
	lockTTL       time.Duration
	notifications NotificationWriter
	notifier      Notifier
	reminders     ReminderPlanner
	events        events.Publisher
	metrics       *metrics.BookingMetrics
	calendar      *clinic.Calendar
	validate      *validator.Validate
	logger        *logging.Logger

	sideEffectTimeout time.Duration
	inflight          sync.WaitGroup
}

// NewWriter constructs a booking writer.
func NewWriter(d Deps) *Writer {
	if d.Appointments == nil || d.Slots == nil {
		panic("booking: appointments repository and slot checker required")
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	if d.Calendar == nil {
		d.Calendar = clinic.NewCalendar(clinic.DefaultTimezone)
	}
	if d.SlotLockTTL <= 0 {
		d.SlotLockTTL = DefaultSlotLockTTL
	}
	if d.SideEffectTimeout <= 0 {
		d.SideEffectTimeout = DefaultSideEffectTimeout
	}
	if d.Events == nil {
		d.Events = events.NopPublisher{}
	}
	return &Writer{
		repo:          d.Appointments,
		slots:         d.Slots,
		locker:        d.Locker,
		lockTTL:       d.SlotLockTTL,
		notifications: d.Notifications,
		notifier:      d.Notifier,
		reminders:     d.Reminders,
		events:        d.Events,
		metrics:       d.Metrics,
		calendar:      d.Calendar,
		validate:      newValidator(),
		logger:        d.Logger,

		sideEffectTimeout: d.SideEffectTimeout,
	}
}

// Book validates the request, claims the slot and stores a pending
// appointment. Post-booking side effects run in the background and never
// fail or delay the booking.
func (w *Writer) Book(ctx context.Context, req CreateAppointmentRequest) (*appointments.Appointment, error) {
	ctx, span := tracer.Start(ctx, "booking.book")
	defer span.End()

	req.normalize()
	if err := w.checkSlot(req, req.Date, req.Time); err != nil {
		w.metrics.ObserveBooking("invalid")
		return nil, err
	}
	span.SetAttributes(attribute.String("clinic.date", req.Date), attribute.String("clinic.time", req.Time))

	a := req.appointment()
	err := w.withSlot(ctx, req.Date, req.Time, func(ctx context.Context) error {
		return w.repo.Create(ctx, a)
	})
	if err != nil {
		w.observeFailure(span, err)
		return nil, err
	}

	w.metrics.ObserveBooking("created")
	w.logger.Info("appointment booked", "appointment_id", a.ID, "date", a.Date, "time", a.Time)
	booked := *a
	w.background(ctx, func(ctx context.Context) { w.afterBooked(ctx, &booked) })
	return a, nil
}

// Reschedule moves an active appointment to a free slot.
func (w *Writer) Reschedule(ctx context.Context, id uuid.UUID, req RescheduleRequest) (*appointments.Appointment, error) {
	ctx, span := tracer.Start(ctx, "booking.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.appointment_id", id.String()))

	if err := w.checkSlot(req, req.Date, req.Time); err != nil {
		return nil, err
	}
	current, err := w.repo.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !current.Status.Active() {
		return nil, appointments.ErrInvalidTransition
	}
	if current.Date == req.Date && current.Time == req.Time {
		return nil, &ValidationError{Field: "time", Message: "appointment is already in that slot"}
	}

	var moved *appointments.Appointment
	err = w.withSlot(ctx, req.Date, req.Time, func(ctx context.Context) error {
		var err error
		moved, err = w.repo.Reschedule(ctx, id, req.Date, req.Time)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	w.logger.Info("appointment rescheduled", "appointment_id", id,
		"from", current.Date+" "+current.Time, "to", moved.Date+" "+moved.Time)
	snapshot := *moved
	w.background(ctx, func(ctx context.Context) { w.afterRescheduled(ctx, &snapshot, current.Date, current.Time) })
	return moved, nil
}

// UpdateStatus applies a staff status change. Cancelling drops pending reminders.
func (w *Writer) UpdateStatus(ctx context.Context, id uuid.UUID, req StatusRequest) (*appointments.Appointment, error) {
	ctx, span := tracer.Start(ctx, "booking.update_status")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.appointment_id", id.String()), attribute.String("clinic.status", string(req.Status)))

	if err := w.validate.Struct(req); err != nil {
		return nil, validationFailure(err)
	}
	updated, err := w.repo.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	w.logger.Info("appointment status changed", "appointment_id", id, "status", updated.Status)
	snapshot := *updated
	w.background(ctx, func(ctx context.Context) { w.afterStatusChange(ctx, &snapshot) })
	return updated, nil
}

// background runs fn off the request path. fn keeps the request's values but
// gets its own deadline of sideEffectTimeout.
func (w *Writer) background(ctx context.Context, fn func(context.Context)) {
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.sideEffectTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// Drain waits for in-flight side effects, or until ctx is done.
func (w *Writer) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get loads one appointment.
func (w *Writer) Get(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error) {
	return w.repo.Get(ctx, id)
}

// ListByDate returns a day's schedule.
func (w *Writer) ListByDate(ctx context.Context, date string) ([]appointments.Appointment, error) {
	if _, err := clinic.ParseDate(date); err != nil {
		return nil, &ValidationError{Field: "date", Message: err.Error()}
	}
	return w.repo.ListByDate(ctx, date)
}

// checkSlot validates req and rejects times outside the slot grid or in the past.
func (w *Writer) checkSlot(req any, date, clock string) error {
	if err := w.validate.Struct(req); err != nil {
		return validationFailure(err)
	}
	if !availability.IsSlot(w.slots.Hours(), clock) {
		return &ValidationError{Field: "time", Message: "not a bookable slot"}
	}
	start, err := clinic.SlotStart(date, clock, w.calendar.Location())
	if err != nil {
		return &ValidationError{Field: "date", Message: err.Error()}
	}
	if !start.After(w.calendar.Now()) {
		return &ValidationError{Field: "date", Message: "slot is in the past"}
	}
	return nil
}

// withSlot runs write while holding the slot lock, after re-checking that the
// slot is still free. The partial unique index on active (date, time) is the
// final guard when the lock backend is unavailable.
func (w *Writer) withSlot(ctx context.Context, date, clock string, write func(context.Context) error) error {
	if w.locker != nil {
		key := "slot:" + date + "T" + clock
		token, ok, err := w.locker.TryLock(ctx, key, w.lockTTL)
		switch {
		case err != nil:
			w.logger.Warn("booking: slot lock unavailable", "key", key, "error", err)
		case !ok:
			return appointments.ErrSlotTaken
		default:
			defer func() {
				if err := w.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					w.logger.Warn("booking: release slot lock", "key", key, "error", err)
				}
			}()
		}
	}

	free, err := w.slots.IsAvailable(ctx, date, clock)
	if err != nil {
		return fmt.Errorf("booking: check availability: %w", err)
	}
	if !free {
		return appointments.ErrSlotTaken
	}
	return write(ctx)
}

func (w *Writer) observeFailure(span trace.Span, err error) {
	switch {
	case errors.Is(err, appointments.ErrSlotTaken):
		w.metrics.ObserveBooking("conflict")
	default:
		w.metrics.ObserveBooking("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
