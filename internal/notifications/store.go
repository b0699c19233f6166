package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides CRUD operations for notifications.
type Store struct {
	db DB
}

// NewStore creates a new notifications store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Create inserts a notification.
func (s *Store) Create(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Type == "" {
		n.Type = TypeGeneral
	}
	n.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, patient_id, notification_type, title, message, is_read, action_url, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6, $7)`,
		n.ID, n.PatientID, string(n.Type), n.Title, n.Message, n.ActionURL, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("notifications: create: %w", err)
	}
	return nil
}

// ListForPatient returns the patient's own notifications plus broadcasts, newest first.
func (s *Store) ListForPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, patient_id, notification_type, title, message, is_read, COALESCE(action_url, ''), created_at
		FROM notifications
		WHERE patient_id = $1 OR patient_id IS NULL
		ORDER BY created_at DESC
		LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("notifications: list: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var typ string
		if err := rows.Scan(&n.ID, &n.PatientID, &typ, &n.Title, &n.Message, &n.IsRead, &n.ActionURL, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("notifications: scan: %w", err)
		}
		n.Type = Type(typ)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead marks one notification visible to the patient as read.
func (s *Store) MarkRead(ctx context.Context, patientID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET is_read = true
		WHERE id = $1 AND (patient_id = $2 OR patient_id IS NULL)`, id, patientID)
	if err != nil {
		return fmt.Errorf("notifications: mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification addressed to the patient as read
// and returns how many changed. Broadcasts are left alone.
func (s *Store) MarkAllRead(ctx context.Context, patientID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET is_read = true
		WHERE patient_id = $1 AND is_read = false`, patientID)
	if err != nil {
		return 0, fmt.Errorf("notifications: mark all read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes a notification.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("notifications: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
