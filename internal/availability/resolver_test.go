package availability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
	"github.com/makhandasmiles/clinic-api/internal/clinic"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// memoryStore answers availability queries from an in-memory appointment list
// using the same active-status rule as the SQL.
type memoryStore struct {
	appts []appointments.Appointment
	err   error
}

func (m *memoryStore) ActiveTimesForDate(_ context.Context, date string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []string
	for _, a := range m.appts {
		if a.Date == date && a.Status.Active() {
			out = append(out, a.Time)
		}
	}
	return out, nil
}

func (m *memoryStore) CountActiveByDate(_ context.Context, from, to time.Time) (map[string]int, error) {
	if m.err != nil {
		return nil, m.err
	}
	counts := map[string]int{}
	for _, a := range m.appts {
		d, err := clinic.ParseDate(a.Date)
		if err != nil || d.Before(from) || d.After(to) || !a.Status.Active() {
			continue
		}
		counts[a.Date]++
	}
	return counts, nil
}

func appt(date, clock string, status appointments.Status) appointments.Appointment {
	return appointments.Appointment{Date: date, Time: clock, Status: status}
}

func newTestResolver(store Store) *Resolver {
	return NewResolver(store, DefaultWorkingHours, logging.Discard())
}

func TestAvailableSlotsEmptyDay(t *testing.T) {
	r := newTestResolver(&memoryStore{})

	slots, err := r.AvailableSlots(context.Background(), "2024-06-10")
	require.NoError(t, err)
	require.Len(t, slots, 9)
	for _, s := range slots {
		assert.True(t, s.Available, s.Time)
	}
}

func TestAvailableSlotsConfirmedBlocksSlot(t *testing.T) {
	r := newTestResolver(&memoryStore{appts: []appointments.Appointment{
		appt("2024-06-10", "10:00", appointments.StatusConfirmed),
	}})

	slots, err := r.AvailableSlots(context.Background(), "2024-06-10")
	require.NoError(t, err)
	for _, s := range slots {
		assert.Equal(t, s.Time != "10:00", s.Available, s.Time)
	}
}

func TestAvailableSlotsIgnoresInactiveStatuses(t *testing.T) {
	r := newTestResolver(&memoryStore{appts: []appointments.Appointment{
		appt("2024-06-10", "10:00", appointments.StatusCancelled),
		appt("2024-06-10", "11:00", appointments.StatusCompleted),
		appt("2024-06-10", "12:00", appointments.StatusPending),
		appt("2024-06-11", "13:00", appointments.StatusConfirmed),
	}})

	slots, err := r.AvailableSlots(context.Background(), "2024-06-10")
	require.NoError(t, err)

	byTime := map[string]bool{}
	for _, s := range slots {
		byTime[s.Time] = s.Available
	}
	assert.True(t, byTime["10:00"])
	assert.True(t, byTime["11:00"])
	assert.False(t, byTime["12:00"])
	assert.True(t, byTime["13:00"])
}

func TestAvailableSlotsDistinguishesOutage(t *testing.T) {
	boom := errors.New("connection refused")
	r := newTestResolver(&memoryStore{err: boom})

	_, err := r.AvailableSlots(context.Background(), "2024-06-10")
	assert.ErrorIs(t, err, boom)

	assert.Empty(t, r.GetAvailableSlots(context.Background(), "2024-06-10"))
	assert.NotNil(t, r.GetAvailableSlots(context.Background(), "2024-06-10"))
}

func TestAvailableSlotsRejectsMalformedDate(t *testing.T) {
	r := newTestResolver(&memoryStore{})
	_, err := r.AvailableSlots(context.Background(), "10-06-2024")
	assert.ErrorIs(t, err, clinic.ErrInvalidDate)
}

func TestIsAvailable(t *testing.T) {
	r := newTestResolver(&memoryStore{appts: []appointments.Appointment{
		appt("2024-06-10", "09:00", appointments.StatusPending),
	}})
	ctx := context.Background()

	ok, err := r.IsAvailable(ctx, "2024-06-10", "09:00")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.IsAvailable(ctx, "2024-06-10", "10:00")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.IsAvailable(ctx, "2024-06-10", "18:00")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMonthAvailabilityCountsSumToActiveAppointments(t *testing.T) {
	store := &memoryStore{appts: []appointments.Appointment{
		appt("2024-05-31", "09:00", appointments.StatusConfirmed),
		appt("2024-06-01", "09:00", appointments.StatusConfirmed),
		appt("2024-06-01", "10:00", appointments.StatusPending),
		appt("2024-06-15", "10:00", appointments.StatusCancelled),
		appt("2024-06-30", "16:00", appointments.StatusPending),
		appt("2024-07-01", "08:00", appointments.StatusPending),
	}}
	r := newTestResolver(store)

	counts, err := r.MonthAvailability(context.Background(), 2024, time.June)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2024-06-01": 2, "2024-06-30": 1}, counts)

	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, 3, total)
}

func TestMonthAvailabilityRejectsBadMonth(t *testing.T) {
	r := newTestResolver(&memoryStore{})
	_, err := r.MonthAvailability(context.Background(), 2024, 0)
	assert.ErrorIs(t, err, ErrInvalidMonth)
	_, err = r.MonthAvailability(context.Background(), 2024, 13)
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestFetchMonthAvailabilityFailSoft(t *testing.T) {
	r := newTestResolver(&memoryStore{err: errors.New("timeout")})
	counts := r.FetchMonthAvailability(context.Background(), 2024, time.June)
	assert.NotNil(t, counts)
	assert.Empty(t, counts)
}

func newTestServer(store Store) *httptest.Server {
	instant := time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC)
	cal := clinic.NewCalendarWithClock(clinic.Location(clinic.DefaultTimezone), func() time.Time { return instant })
	h := NewHandler(newTestResolver(store), cal, logging.Discard())
	r := chi.NewRouter()
	r.Route("/api/availability", h.RegisterRoutes)
	return httptest.NewServer(r)
}

func TestHandlerSlots(t *testing.T) {
	srv := newTestServer(&memoryStore{appts: []appointments.Appointment{
		appt("2024-06-10", "10:00", appointments.StatusConfirmed),
	}})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/availability/slots")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(DegradedHeader))

	bad, err := http.Get(srv.URL + "/api/availability/slots?date=tomorrow")
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestHandlerSlotsDegraded(t *testing.T) {
	srv := newTestServer(&memoryStore{err: errors.New("db down")})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/availability/slots?date=2024-06-10")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(DegradedHeader))
}

func TestHandlerMonthDegraded(t *testing.T) {
	srv := newTestServer(&memoryStore{err: errors.New("db down")})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/availability/month?year=2024&month=6")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(DegradedHeader))

	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body)
}

func TestHandlerMonth(t *testing.T) {
	srv := newTestServer(&memoryStore{})
	defer srv.Close()

	tests := []struct {
		query string
		want  int
	}{
		{"?year=2024&month=6", http.StatusOK},
		{"", http.StatusOK},
		{"?year=2024&month=0", http.StatusBadRequest},
		{"?year=2024&month=13", http.StatusBadRequest},
		{"?year=2024&month=june", http.StatusBadRequest},
		{"?year=-1&month=6", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + "/api/availability/month" + tt.query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tt.want, resp.StatusCode, tt.query)
	}
}
