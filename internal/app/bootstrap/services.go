package bootstrap

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
	"github.com/makhandasmiles/clinic-api/internal/availability"
	"github.com/makhandasmiles/clinic-api/internal/booking"
	"github.com/makhandasmiles/clinic-api/internal/clinic"
	appconfig "github.com/makhandasmiles/clinic-api/internal/config"
	"github.com/makhandasmiles/clinic-api/internal/digest"
	"github.com/makhandasmiles/clinic-api/internal/events"
	"github.com/makhandasmiles/clinic-api/internal/jobs"
	"github.com/makhandasmiles/clinic-api/internal/locks"
	"github.com/makhandasmiles/clinic-api/internal/notifications"
	"github.com/makhandasmiles/clinic-api/internal/notify"
	"github.com/makhandasmiles/clinic-api/internal/observability/metrics"
	"github.com/makhandasmiles/clinic-api/internal/reminders"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// DB is satisfied by *pgxpool.Pool and by pgxmock pools in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Infra holds the already-connected external dependencies.
type Infra struct {
	DB       DB
	Locker   locks.Locker
	Email    notify.EmailSender
	Events   events.Publisher
	Archive  *digest.Archive
	Registry prometheus.Registerer
	// Now pins the clock in tests.
	Now func() time.Time
}

// Services is the assembled application graph shared by the API, the
// scheduler Lambda and clinicctl.
type Services struct {
	Calendar      *clinic.Calendar
	Appointments  *appointments.Repository
	Availability  *availability.Resolver
	Booking       *booking.Writer
	Notifications *notifications.Store
	Reminders     *reminders.Store
	Runner        *jobs.Runner
}

// BuildServices wires stores, the booking writer, the reminder scanners and
// the digest reporters, and registers every scheduled job on one runner.
func BuildServices(cfg *appconfig.Config, infra Infra, logger *logging.Logger) *Services {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		cfg = &appconfig.Config{}
	}
	if infra.Locker == nil {
		infra.Locker = locks.NewLocalLocker()
	}
	if infra.Email == nil {
		infra.Email = notify.NewStubEmailSender(logger)
	}
	if infra.Events == nil {
		infra.Events = events.NopPublisher{}
	}

	calendar := clinic.NewCalendarWithClock(clinic.Location(cfg.ClinicTimezone), infra.Now)
	practice := notify.Practice{
		Name:    cfg.PracticeName,
		Phone:   cfg.PracticePhone,
		Address: cfg.PracticeAddress,
		Email:   cfg.EmailReplyTo,
	}
	if practice.Email == "" {
		practice.Email = cfg.StaffEmail
	}
	templates := notify.NewTemplates(practice)

	apptRepo := appointments.NewRepository(infra.DB)
	reminderStore := reminders.NewStore(infra.DB)
	notificationStore := notifications.NewStore(infra.DB)
	digestStore := digest.NewStore(infra.DB)

	resolver := availability.NewResolver(apptRepo, availability.WorkingHours{
		StartHour: cfg.WorkingHoursStart,
		EndHour:   cfg.WorkingHoursEnd,
	}, logger)
	scheduler := reminders.NewScheduler(reminderStore, calendar, logger)

	writer := booking.NewWriter(booking.Deps{
		Appointments:  apptRepo,
		Slots:         resolver,
		Locker:        infra.Locker,
		SlotLockTTL:   cfg.SlotLockTTL,
		Notifications: notificationStore,
		Notifier:      notify.NewService(infra.Email, templates, cfg.StaffEmail, logger),
		Reminders:     scheduler,
		Events:        infra.Events,
		Metrics:       metrics.NewBookingMetrics(infra.Registry),
		Calendar:      calendar,
		Logger:        logger,

		SideEffectTimeout: cfg.SideEffectTimeout,
	})

	daily := reminders.NewDailyScanner(apptRepo, infra.Email, templates, calendar, cfg.ReminderBatchLimit, logger)
	staged := reminders.NewStagedScanner(reminderStore, infra.Email, templates, cfg.ReminderBatchLimit, logger)
	weekly := digest.NewWeeklyReporter(apptRepo, digestStore, infra.Email, practice, calendar, cfg.StaffEmail, infra.Archive, logger)
	chat := digest.NewChatDigester(digestStore, infra.Email, calendar, cfg.StaffEmail, logger)

	runner := jobs.NewRunner(infra.Locker, cfg.JobLockTTL, metrics.NewJobMetrics(infra.Registry), logger)
	runner.Register(jobs.Job{
		Name:           jobs.ScheduledReminders,
		FailureMessage: "Failed to send reminders",
		Run:            func(ctx context.Context) (any, error) { return daily.Run(ctx) },
	})
	runner.Register(jobs.Job{
		Name:           jobs.SendReminders,
		FailureMessage: "Failed to process reminders",
		Run:            func(ctx context.Context) (any, error) { return staged.Run(ctx) },
	})
	runner.Register(jobs.Job{
		Name:           jobs.WeeklyReport,
		FailureMessage: "Failed to generate report",
		Run:            func(ctx context.Context) (any, error) { return weekly.Run(ctx) },
	})
	runner.Register(jobs.Job{
		Name:           jobs.DailySummary,
		FailureMessage: "Failed to generate summary",
		Run:            func(ctx context.Context) (any, error) { return chat.Run(ctx) },
	})

	return &Services{
		Calendar:      calendar,
		Appointments:  apptRepo,
		Availability:  resolver,
		Booking:       writer,
		Notifications: notificationStore,
		Reminders:     reminderStore,
		Runner:        runner,
	}
}
