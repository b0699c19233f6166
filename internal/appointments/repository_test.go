package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var appointmentCols = []string{
	"id", "patient_id", "patient_name", "patient_email", "patient_phone",
	"appointment_date", "appointment_time", "service_type", "status",
	"reminder_sent", "notes", "created_at", "updated_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func appointmentRow(rows *pgxmock.Rows, id uuid.UUID, day time.Time, clock string, status Status) *pgxmock.Rows {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return rows.AddRow(id, (*uuid.UUID)(nil), "Thandi Mokoena", "thandi@example.com", "+27821234567",
		day, clock, "Check-up", string(status), false, "", now, now)
}

func TestActiveTimesForDate(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT appointment_time\s+FROM appointments\s+WHERE appointment_date = \$1 AND status IN \('pending', 'confirmed'\)`).
		WithArgs(day).
		WillReturnRows(pgxmock.NewRows([]string{"appointment_time"}).AddRow("10:00").AddRow("14:00"))

	times, err := repo.ActiveTimesForDate(context.Background(), "2024-06-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "14:00"}, times)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveTimesForDateRejectsMalformedDate(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)

	_, err := repo.ActiveTimesForDate(context.Background(), "June 10")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountActiveByDate(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT appointment_date, COUNT\(\*\)`).
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{"appointment_date", "count"}).
			AddRow(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), int64(3)).
			AddRow(time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), int64(1)))

	counts, err := repo.CountActiveByDate(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2024-06-10": 3, "2024-06-12": 1}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAssignsDefaults(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), (*uuid.UUID)(nil), "Thandi Mokoena", "thandi@example.com", "+27821234567",
			time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), "10:00", "Check-up", "pending", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	a := &Appointment{
		PatientName:  "Thandi Mokoena",
		PatientEmail: "thandi@example.com",
		PatientPhone: "+27821234567",
		Date:         "2024-06-10",
		Time:         "10:00",
		ServiceType:  "Check-up",
	}
	require.NoError(t, repo.Create(context.Background(), a))
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.Equal(t, StatusPending, a.Status)
	assert.False(t, a.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMapsUniqueViolationToSlotTaken(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)

	mock.ExpectExec("INSERT INTO appointments").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_active_slot_idx"})

	err := repo.Create(context.Background(), &Appointment{Date: "2024-06-10", Time: "10:00"})
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestGetNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, patient_id").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDueForReminder(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	id := uuid.New()

	rows := appointmentRow(pgxmock.NewRows(appointmentCols), id, day, "09:00", StatusConfirmed)
	mock.ExpectQuery(`status = 'confirmed' AND reminder_sent IS NOT TRUE`).
		WithArgs(day, 20).
		WillReturnRows(rows)

	due, err := repo.ListDueForReminder(context.Background(), "2024-06-10", 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, id, due[0].ID)
	assert.Equal(t, "2024-06-10", due[0].Date)
	assert.Equal(t, StatusConfirmed, due[0].Status)
	assert.Nil(t, due[0].PatientID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReminderSentIsConditional(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)
	id := uuid.New()

	mock.ExpectExec(`UPDATE appointments SET reminder_sent = true`).WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE appointments SET reminder_sent = true`).WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	first, err := repo.MarkReminderSent(context.Background(), id)
	require.NoError(t, err)
	second, err := repo.MarkReminderSent(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusRejectsTerminal(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)
	id := uuid.New()
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, patient_id").WithArgs(id).
		WillReturnRows(appointmentRow(pgxmock.NewRows(appointmentCols), id, day, "10:00", StatusCancelled))

	_, err := repo.UpdateStatus(context.Background(), id, StatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusConfirmsPending(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)
	id := uuid.New()
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, patient_id").WithArgs(id).
		WillReturnRows(appointmentRow(pgxmock.NewRows(appointmentCols), id, day, "10:00", StatusPending))
	mock.ExpectQuery(`UPDATE appointments SET status = \$3`).WithArgs(id, "pending", "confirmed").
		WillReturnRows(appointmentRow(pgxmock.NewRows(appointmentCols), id, day, "10:00", StatusConfirmed))

	updated, err := repo.UpdateStatus(context.Background(), id, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleSlotTaken(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE appointments\s+SET appointment_date = \$2`).
		WithArgs(id, time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), "11:00").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Reschedule(context.Background(), id, "2024-06-11", "11:00")
	assert.ErrorIs(t, err, ErrSlotTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusConfirmed.CanTransitionTo(StatusPending))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusConfirmed))
	assert.False(t, StatusPending.CanTransitionTo(Status("archived")))

	assert.True(t, StatusPending.Active())
	assert.True(t, StatusConfirmed.Active())
	assert.False(t, StatusCancelled.Active())
	assert.False(t, StatusCompleted.Active())
}
