package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/makhandasmiles/clinic-api/internal/clinic"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

var tracer = otel.Tracer("clinic.internal.availability")

// ErrInvalidMonth is returned when month is outside 1..12.
var ErrInvalidMonth = errors.New("availability: month must be between 1 and 12")

// Store reads the appointment data availability is derived from.
type Store interface {
	ActiveTimesForDate(ctx context.Context, date string) ([]string, error)
	CountActiveByDate(ctx context.Context, from, to time.Time) (map[string]int, error)
}

// TimeSlot is one bookable start time and whether it is free.
type TimeSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Resolver cross-references booked appointments against the slot grid.
type Resolver struct {
	store  Store
	hours  WorkingHours
	logger *logging.Logger
}

// NewResolver creates a resolver. Invalid hours fall back to DefaultWorkingHours.
func NewResolver(store Store, hours WorkingHours, logger *logging.Logger) *Resolver {
	if store == nil {
		panic("availability: store required")
	}
	if !hours.Valid() {
		hours = DefaultWorkingHours
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{store: store, hours: hours, logger: logger}
}

// Hours returns the working hours the resolver enumerates.
func (r *Resolver) Hours() WorkingHours {
	return r.hours
}

// AvailableSlots marks each generated slot free unless an active appointment
// holds it. A malformed date returns clinic.ErrInvalidDate; store failures are
// returned wrapped so callers can tell an outage from a full day.
func (r *Resolver) AvailableSlots(ctx context.Context, date string) ([]TimeSlot, error) {
	ctx, span := tracer.Start(ctx, "availability.slots")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.date", date))

	if _, err := clinic.ParseDate(date); err != nil {
		return nil, err
	}
	taken, err := r.store.ActiveTimesForDate(ctx, date)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("availability: load booked times: %w", err)
	}

	takenSet := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		takenSet[t] = struct{}{}
	}

	slots := GenerateSlots(r.hours)
	out := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		_, busy := takenSet[s]
		out = append(out, TimeSlot{Time: s, Available: !busy})
	}
	return out, nil
}

// GetAvailableSlots is the fail-soft form of AvailableSlots: any error is
// logged and an empty slice returned.
func (r *Resolver) GetAvailableSlots(ctx context.Context, date string) []TimeSlot {
	slots, _ := r.slotsOrEmpty(ctx, date)
	return slots
}

// slotsOrEmpty reports degraded when an error was swallowed.
func (r *Resolver) slotsOrEmpty(ctx context.Context, date string) ([]TimeSlot, bool) {
	slots, err := r.AvailableSlots(ctx, date)
	if err != nil {
		r.logger.Error("availability: get available slots", "date", date, "error", err)
		return []TimeSlot{}, true
	}
	return slots, false
}

// IsAvailable reports whether clock is a generated slot that is free on date.
func (r *Resolver) IsAvailable(ctx context.Context, date, clock string) (bool, error) {
	slots, err := r.AvailableSlots(ctx, date)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s.Time == clock {
			return s.Available, nil
		}
	}
	return false, nil
}

// MonthAvailability counts active appointments per date for the month.
// month follows time.Month, so January is 1.
func (r *Resolver) MonthAvailability(ctx context.Context, year int, month time.Month) (map[string]int, error) {
	ctx, span := tracer.Start(ctx, "availability.month")
	defer span.End()
	span.SetAttributes(attribute.Int("clinic.year", year), attribute.Int("clinic.month", int(month)))

	if month < time.January || month > time.December {
		return nil, ErrInvalidMonth
	}
	first, last := clinic.MonthBounds(year, month)
	counts, err := r.store.CountActiveByDate(ctx, first, last)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("availability: count month: %w", err)
	}
	if counts == nil {
		counts = map[string]int{}
	}
	return counts, nil
}

// FetchMonthAvailability is the fail-soft form of MonthAvailability.
func (r *Resolver) FetchMonthAvailability(ctx context.Context, year int, month time.Month) map[string]int {
	counts, _ := r.monthOrEmpty(ctx, year, month)
	return counts
}

func (r *Resolver) monthOrEmpty(ctx context.Context, year int, month time.Month) (map[string]int, bool) {
	counts, err := r.MonthAvailability(ctx, year, month)
	if err != nil {
		r.logger.Error("availability: fetch month availability", "year", year, "month", int(month), "error", err)
		return map[string]int{}, true
	}
	return counts, false
}
