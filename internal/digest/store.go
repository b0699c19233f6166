package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads the assistant conversation tables for the digests.
type Store struct {
	db DB
}

// NewStore creates a digest store.
func NewStore(db DB) *Store {
	if db == nil {
		panic("digest: db required")
	}
	return &Store{db: db}
}

// CountConversations counts conversations started within [start, end].
func (s *Store) CountConversations(ctx context.Context, start, end time.Time) (int, error) {
	var n int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM conversations
		WHERE created_at >= $1 AND created_at <= $2`, start.UTC(), end.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("digest: count conversations: %w", err)
	}
	return int(n), nil
}

// ChatMessagesSince returns chat messages created at or after since, oldest first.
func (s *Store) ChatMessagesSince(ctx context.Context, since time.Time) ([]ChatMessage, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, COALESCE(user_email, 'anonymous'), role, content, created_at
		FROM chat_messages
		WHERE created_at >= $1
		ORDER BY created_at ASC`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("digest: chat messages: %w", err)
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.UserEmail, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("digest: scan chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
