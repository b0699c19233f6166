package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
	"github.com/makhandasmiles/clinic-api/internal/clinic"
)

// DefaultBatchLimit bounds one scanner pass.
const DefaultBatchLimit = 20

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides persistence for appointment_reminders.
type Store struct {
	db DB
}

// NewStore creates a new reminder store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Create inserts a pending reminder unless one already exists for the
// (appointment, type) pair. It reports whether a row was written.
func (s *Store) Create(ctx context.Context, appointmentID uuid.UUID, typ Type, scheduled time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO appointment_reminders (id, appointment_id, reminder_type, scheduled_time, status, created_at)
		VALUES ($1, $2, $3, $4, 'pending', now())
		ON CONFLICT (appointment_id, reminder_type) DO NOTHING`,
		uuid.New(), appointmentID, string(typ), scheduled.UTC())
	if err != nil {
		return false, fmt.Errorf("reminders: create: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Rearm points the (appointment, type) reminder at a new time and makes it
// pending again, creating it if needed. Used after a reschedule.
func (s *Store) Rearm(ctx context.Context, appointmentID uuid.UUID, typ Type, scheduled time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO appointment_reminders (id, appointment_id, reminder_type, scheduled_time, status, created_at)
		VALUES ($1, $2, $3, $4, 'pending', now())
		ON CONFLICT (appointment_id, reminder_type)
		DO UPDATE SET scheduled_time = EXCLUDED.scheduled_time, status = 'pending', sent_at = NULL`,
		uuid.New(), appointmentID, string(typ), scheduled.UTC())
	if err != nil {
		return fmt.Errorf("reminders: rearm: %w", err)
	}
	return nil
}

// ListDue returns pending reminders scheduled at or before asOf whose
// appointment is still active, oldest first, capped at limit.
func (s *Store) ListDue(ctx context.Context, asOf time.Time, limit int) ([]DueReminder, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.appointment_id, r.reminder_type, r.scheduled_time, r.status, r.sent_at, r.created_at,
			a.patient_name, a.patient_email, a.appointment_date, a.appointment_time, COALESCE(a.service_type, ''), a.status
		FROM appointment_reminders r
		JOIN appointments a ON a.id = r.appointment_id
		WHERE r.status = 'pending' AND r.scheduled_time <= $1
			AND a.status IN ('pending', 'confirmed')
		ORDER BY r.scheduled_time ASC
		LIMIT $2`, asOf.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("reminders: list due: %w", err)
	}
	defer rows.Close()

	var result []DueReminder
	for rows.Next() {
		var d DueReminder
		var typ, status, apptStatus string
		var day time.Time
		err := rows.Scan(
			&d.ID, &d.AppointmentID, &typ, &d.ScheduledTime, &status, &d.SentAt, &d.CreatedAt,
			&d.Appointment.PatientName, &d.Appointment.PatientEmail, &day, &d.Appointment.Time,
			&d.Appointment.ServiceType, &apptStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("reminders: scan due: %w", err)
		}
		d.Type = Type(typ)
		d.Status = Status(status)
		d.Appointment.ID = d.AppointmentID
		d.Appointment.Date = clinic.FormatDate(day)
		d.Appointment.Status = appointments.Status(apptStatus)
		result = append(result, d)
	}
	return result, rows.Err()
}

// MarkSent transitions a reminder from pending to sent. It reports false when
// the reminder was no longer pending.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.finish(ctx, id, StatusSent)
}

// MarkFailed transitions a reminder from pending to failed. Failed reminders are not retried.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.finish(ctx, id, StatusFailed)
}

func (s *Store) finish(ctx context.Context, id uuid.UUID, status Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointment_reminders SET status = $1, sent_at = $2
		WHERE id = $3 AND status = 'pending'`, string(status), time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("reminders: mark %s: %w", status, err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeletePending removes the pending reminders of an appointment, e.g. after cancellation.
func (s *Store) DeletePending(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM appointment_reminders WHERE appointment_id = $1 AND status = 'pending'`, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("reminders: delete pending: %w", err)
	}
	return tag.RowsAffected(), nil
}

// List returns reminders, optionally filtered by status, soonest first.
func (s *Store) List(ctx context.Context, status *Status, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows pgx.Rows
	var err error
	if status != nil {
		rows, err = s.db.Query(ctx, `
			SELECT id, appointment_id, reminder_type, scheduled_time, status, sent_at, created_at
			FROM appointment_reminders
			WHERE status = $1
			ORDER BY scheduled_time ASC LIMIT $2`, string(*status), limit)
	} else {
		rows, err = s.db.Query(ctx, `
			SELECT id, appointment_id, reminder_type, scheduled_time, status, sent_at, created_at
			FROM appointment_reminders
			ORDER BY scheduled_time ASC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("reminders: list: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// Stats returns aggregated reminder outcomes for the admin dashboard.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	row := s.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'sent') AS sent,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed
		FROM appointment_reminders`)

	var stats Stats
	if err := row.Scan(&stats.Pending, &stats.Sent, &stats.Failed); err != nil {
		return nil, fmt.Errorf("reminders: stats: %w", err)
	}
	stats.Total = stats.Pending + stats.Sent + stats.Failed
	if done := stats.Sent + stats.Failed; done > 0 {
		stats.DeliveryRate = float64(stats.Sent) / float64(done) * 100
	}
	return &stats, nil
}

func scanReminders(rows pgx.Rows) ([]Reminder, error) {
	var result []Reminder
	for rows.Next() {
		var r Reminder
		var typ, status string
		if err := rows.Scan(&r.ID, &r.AppointmentID, &typ, &r.ScheduledTime, &status, &r.SentAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("reminders: scan reminder: %w", err)
		}
		r.Type = Type(typ)
		r.Status = Status(status)
		result = append(result, r)
	}
	return result, rows.Err()
}
