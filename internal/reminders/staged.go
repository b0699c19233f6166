package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/makhandasmiles/clinic-api/internal/notify"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// Queue is the slice of Store the staged scan needs.
type Queue interface {
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]DueReminder, error)
	MarkSent(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
}

// StagedResult is the in-band report of one staged scan.
type StagedResult struct {
	Processed int    `json:"processed"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Message   string `json:"message,omitempty"`
}

// StagedScanner delivers due 24h/2h/day-of reminder rows.
type StagedScanner struct {
	queue     Queue
	sender    notify.EmailSender
	templates *notify.Templates
	limit     int
	now       func() time.Time
	logger    *logging.Logger
}

// NewStagedScanner creates the staged reminder scan.
func NewStagedScanner(queue Queue, sender notify.EmailSender, templates *notify.Templates, limit int, logger *logging.Logger) *StagedScanner {
	if logger == nil {
		logger = logging.Default()
	}
	if templates == nil {
		templates = notify.NewTemplates(notify.Practice{})
	}
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	return &StagedScanner{queue: queue, sender: sender, templates: templates, limit: limit, now: time.Now, logger: logger}
}

// Run sends up to one batch of due reminders, marking each sent or failed.
func (s *StagedScanner) Run(ctx context.Context) (StagedResult, error) {
	due, err := s.queue.ListDue(ctx, s.now().UTC(), s.limit)
	if err != nil {
		return StagedResult{}, fmt.Errorf("reminders: staged scan: %w", err)
	}
	if len(due) == 0 {
		return StagedResult{Message: "No reminders due"}, nil
	}

	s.logger.Info("reminders: staged scan", "count", len(due))
	var result StagedResult
	for i := range due {
		r := &due[i]
		result.Processed++
		if s.deliver(ctx, r) {
			result.Sent++
		} else {
			result.Failed++
		}
	}
	s.logger.Info("reminders: staged scan complete", "processed", result.Processed, "sent", result.Sent, "failed", result.Failed)
	return result, nil
}

func (s *StagedScanner) deliver(ctx context.Context, r *DueReminder) bool {
	msg, err := s.templates.StagedReminder(string(r.Type), &r.Appointment)
	if err == nil {
		err = s.sender.Send(ctx, msg)
	}
	if err != nil {
		s.logger.Error("reminders: staged send failed", "id", r.ID, "type", r.Type, "appointment_id", r.AppointmentID, "error", err)
		if _, markErr := s.queue.MarkFailed(ctx, r.ID); markErr != nil {
			s.logger.Error("reminders: mark failed", "id", r.ID, "error", markErr)
		}
		return false
	}
	if _, err := s.queue.MarkSent(ctx, r.ID); err != nil {
		s.logger.Error("reminders: mark sent", "id", r.ID, "error", err)
	}
	return true
}

// ItemCounts reports per-item outcomes for job metrics.
func (r StagedResult) ItemCounts() map[string]int {
	return map[string]int{"sent": r.Sent, "failed": r.Failed}
}
