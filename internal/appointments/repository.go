package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/makhandasmiles/clinic-api/internal/clinic"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const appointmentColumns = `id, patient_id, patient_name, patient_email, patient_phone,
	appointment_date, appointment_time, COALESCE(service_type, ''), status,
	COALESCE(reminder_sent, false), COALESCE(notes, ''), created_at, updated_at`

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides persistence for the appointments table.
type Repository struct {
	db DB
}

// NewRepository creates a repository over a pgx pool (or pgxmock in tests).
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("appointments: db required")
	}
	return &Repository{db: db}
}

// ActiveTimesForDate returns the time labels held by pending/confirmed appointments on date.
func (r *Repository) ActiveTimesForDate(ctx context.Context, date string) ([]string, error) {
	day, err := clinic.ParseDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `
		SELECT appointment_time
		FROM appointments
		WHERE appointment_date = $1 AND status IN ('pending', 'confirmed')`, day)
	if err != nil {
		return nil, fmt.Errorf("appointments: active times: %w", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("appointments: scan time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// CountActiveByDate counts pending/confirmed appointments per date within [from, to] inclusive.
func (r *Repository) CountActiveByDate(ctx context.Context, from, to time.Time) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT appointment_date, COUNT(*)
		FROM appointments
		WHERE appointment_date BETWEEN $1 AND $2 AND status IN ('pending', 'confirmed')
		GROUP BY appointment_date
		ORDER BY appointment_date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointments: count by date: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day time.Time
		var n int64
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("appointments: scan count: %w", err)
		}
		counts[clinic.FormatDate(day)] = int(n)
	}
	return counts, rows.Err()
}

// Create inserts a new appointment. A concurrent active booking for the same
// slot trips the partial unique index and surfaces as ErrSlotTaken.
func (r *Repository) Create(ctx context.Context, a *Appointment) error {
	day, err := clinic.ParseDate(a.Date)
	if err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err = r.db.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, patient_name, patient_email, patient_phone,
			appointment_date, appointment_time, service_type, status, reminder_sent, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10, $11, $12)`,
		a.ID, a.PatientID, a.PatientName, a.PatientEmail, a.PatientPhone,
		day, a.Time, a.ServiceType, string(a.Status), a.Notes, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: create: %w", err)
	}
	return nil
}

// Get loads one appointment.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return a, nil
}

// ListByDate returns every appointment on date ordered by time, for the staff day view.
func (r *Repository) ListByDate(ctx context.Context, date string) ([]Appointment, error) {
	day, err := clinic.ParseDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_date = $1
		ORDER BY appointment_time ASC`, day)
	if err != nil {
		return nil, fmt.Errorf("appointments: list by date: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListDueForReminder returns confirmed appointments on date that have not had
// their same-day reminder, capped at limit.
func (r *Repository) ListDueForReminder(ctx context.Context, date string, limit int) ([]Appointment, error) {
	day, err := clinic.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_date = $1 AND status = 'confirmed' AND reminder_sent IS NOT TRUE
		ORDER BY appointment_time ASC
		LIMIT $2`, day, limit)
	if err != nil {
		return nil, fmt.Errorf("appointments: list due for reminder: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// MarkReminderSent flips reminder_sent once. It reports false when another
// run already did it.
func (r *Repository) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments SET reminder_sent = true, updated_at = now()
		WHERE id = $1 AND reminder_sent IS NOT TRUE`, id)
	if err != nil {
		return false, fmt.Errorf("appointments: mark reminder sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateStatus moves an appointment to next if the lifecycle allows it.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, next Status) (*Appointment, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}
	row := r.db.QueryRow(ctx, `
		UPDATE appointments SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+appointmentColumns, id, string(current.Status), string(next))
	updated, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Someone else changed the status between the read and the write.
		return nil, ErrInvalidTransition
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: update status: %w", err)
	}
	return updated, nil
}

// Reschedule moves an active appointment to a new slot and re-arms its same-day reminder.
func (r *Repository) Reschedule(ctx context.Context, id uuid.UUID, date, clock string) (*Appointment, error) {
	day, err := clinic.ParseDate(date)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET appointment_date = $2, appointment_time = $3, reminder_sent = false, updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'confirmed')
		RETURNING `+appointmentColumns, id, day, clock)
	updated, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInvalidTransition
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: reschedule: %w", err)
	}
	return updated, nil
}

// ListCreatedBetween returns appointments created in [start, end], newest first.
func (r *Repository) ListCreatedBetween(ctx context.Context, start, end time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("appointments: list created between: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*Appointment, error) {
	var a Appointment
	var day time.Time
	var status string
	err := row.Scan(
		&a.ID, &a.PatientID, &a.PatientName, &a.PatientEmail, &a.PatientPhone,
		&day, &a.Time, &a.ServiceType, &status,
		&a.ReminderSent, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Date = clinic.FormatDate(day)
	a.Status = Status(status)
	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
