package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/makhandasmiles/clinic-api/internal/clinic"
	"github.com/makhandasmiles/clinic-api/internal/notify"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// ChatWindow is how far back the daily chat digest looks.
const ChatWindow = 24 * time.Hour

// ChatSource loads chat messages.
type ChatSource interface {
	ChatMessagesSince(ctx context.Context, since time.Time) ([]ChatMessage, error)
}

// ChatDigester emails the staff the last day of assistant conversations.
type ChatDigester struct {
	source     ChatSource
	sender     notify.EmailSender
	calendar   *clinic.Calendar
	staffEmail string
	logger     *logging.Logger
}

// NewChatDigester creates the daily chat digest.
func NewChatDigester(source ChatSource, sender notify.EmailSender, calendar *clinic.Calendar, staffEmail string, logger *logging.Logger) *ChatDigester {
	if logger == nil {
		logger = logging.Default()
	}
	if calendar == nil {
		calendar = clinic.NewCalendar(clinic.DefaultTimezone)
	}
	return &ChatDigester{source: source, sender: sender, calendar: calendar, staffEmail: staffEmail, logger: logger}
}

// Run sends one digest covering [now-24h, now]. A failed send is reported
// in-band as success=false; only a failed load is an error.
func (d *ChatDigester) Run(ctx context.Context) (ChatDigestResult, error) {
	if d.staffEmail == "" {
		return ChatDigestResult{}, ErrNoRecipient
	}
	since := d.calendar.Now().Add(-ChatWindow)
	messages, err := d.source.ChatMessagesSince(ctx, since)
	if err != nil {
		return ChatDigestResult{}, fmt.Errorf("digest: daily chat: %w", err)
	}

	if len(messages) == 0 {
		err := d.sender.Send(ctx, NoActivityEmail(d.staffEmail))
		if err != nil {
			d.logger.Error("digest: send no-activity summary", "error", err)
		}
		return ChatDigestResult{Success: err == nil, Message: "No messages to summarize"}, nil
	}

	threads := GroupByUser(messages)
	result := ChatDigestResult{SummaryCount: len(messages), Users: len(threads)}
	if err := d.sender.Send(ctx, ChatDigestEmail(d.staffEmail, threads, d.calendar.Location())); err != nil {
		d.logger.Error("digest: send chat summary", "users", len(threads), "error", err)
		return result, nil
	}
	result.Success = true
	d.logger.Info("digest: chat summary sent", "users", len(threads), "messages", len(messages))
	return result, nil
}

// ItemCounts reports per-item outcomes for job metrics.
func (r ChatDigestResult) ItemCounts() map[string]int {
	if r.Success {
		return map[string]int{"sent": 1}
	}
	return map[string]int{"failed": 1}
}
