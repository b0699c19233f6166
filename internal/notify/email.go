package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/makhandasmiles/clinic-api/internal/observability/metrics"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// DefaultFromName is the display name used when none is configured.
const DefaultFromName = "Makhanda Smiles"

// Category groups practice emails for provider analytics and metrics.
type Category string

const (
	CategoryBooking    Category = "booking"
	CategoryStaffAlert Category = "staff-alert"
	CategoryReminder   Category = "reminder"
	CategoryReschedule Category = "reschedule"
	CategoryReport     Category = "weekly-report"
	CategoryChatDigest Category = "chat-digest"
)

// EmailSender delivers one practice email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a rendered practice email.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string // plain text
	HTML    string
	// ReplyTo overrides the sender's default reply address.
	ReplyTo       string
	Category      Category
	AppointmentID string
}

// SenderConfig is the practice's outbound identity, shared by every provider.
type SenderConfig struct {
	FromEmail string
	FromName  string
	// ReplyTo receives patient replies when a message does not set its own.
	ReplyTo string
	Metrics *metrics.EmailMetrics
}

func (c SenderConfig) withDefaults() SenderConfig {
	if c.FromName == "" {
		c.FromName = DefaultFromName
	}
	return c
}

func (c SenderConfig) replyTo(msg EmailMessage) string {
	if msg.ReplyTo != "" {
		return msg.ReplyTo
	}
	return c.ReplyTo
}

func (c SenderConfig) observe(provider string, msg EmailMessage, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	c.Metrics.ObserveSend(provider, string(msg.Category), outcome)
}

// SendGridSender delivers through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	cfg    SenderConfig
	logger *logging.Logger
}

// NewSendGridSender returns nil without an API key.
func NewSendGridSender(apiKey string, cfg SenderConfig, logger *logging.Logger) *SendGridSender {
	if apiKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGridSender{
		client: sendgrid.NewSendClient(apiKey),
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// buildMessage maps msg onto a v3 mail body. Category and appointment ID
// travel as SendGrid categories and custom args so webhook events can be
// traced back to the visit.
func (s *SendGridSender) buildMessage(msg EmailMessage) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.cfg.FromName, s.cfg.FromEmail))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	if msg.AppointmentID != "" {
		p.SetCustomArg("appointment_id", msg.AppointmentID)
	}
	m.AddPersonalizations(p)

	text := msg.Body
	if text == "" {
		text = msg.Subject
	}
	m.AddContent(mail.NewContent("text/plain", text))
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	if msg.Category != "" {
		m.AddCategories(string(msg.Category))
	}
	if reply := s.cfg.replyTo(msg); reply != "" {
		m.SetReplyTo(mail.NewEmail(s.cfg.FromName, reply))
	}
	return m
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) (err error) {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	defer func() { s.cfg.observe("sendgrid", msg, err) }()

	response, err := s.client.SendWithContext(ctx, s.buildMessage(msg))
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To, "category", msg.Category)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected email", "status", response.StatusCode, "body", response.Body,
			"to", msg.To, "category", msg.Category)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("email sent via sendgrid", "to", msg.To, "category", msg.Category,
		"appointment_id", msg.AppointmentID, "status", response.StatusCode)
	return nil
}

// StubEmailSender logs instead of sending; used locally and when no provider is configured.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("stub email sender: would send email", "to", msg.To, "subject", msg.Subject,
		"category", msg.Category, "appointment_id", msg.AppointmentID)
	return nil
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
