package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/makhandasmiles/clinic-api/internal/config"
	"github.com/makhandasmiles/clinic-api/internal/digest"
	"github.com/makhandasmiles/clinic-api/internal/events"
	"github.com/makhandasmiles/clinic-api/internal/notify"
	"github.com/makhandasmiles/clinic-api/internal/observability/metrics"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// BuildEmailSender selects the outbound email provider. It returns the
// provider actually used and, when that differs from the configured one,
// the reason for the fallback. emailMetrics may be nil.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, emailMetrics *metrics.EmailMetrics, logger *logging.Logger) (notify.EmailSender, string, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger), "stub", "missing config"
	}
	identity := notify.SenderConfig{
		FromEmail: cfg.EmailFromAddress,
		FromName:  cfg.EmailFromName,
		ReplyTo:   cfg.EmailReplyTo,
		Metrics:   emailMetrics,
	}

	switch strings.ToLower(strings.TrimSpace(cfg.EmailProvider)) {
	case "ses":
		if awsCfg == nil {
			return notify.NewStubEmailSender(logger), "stub", "ses selected without aws config"
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), identity, cfg.SESConfigurationSet, logger)
		return sender, "ses", ""
	case "sendgrid":
		sender := notify.NewSendGridSender(cfg.SendGridAPIKey, identity, logger)
		if sender == nil {
			return notify.NewStubEmailSender(logger), "stub", "SENDGRID_API_KEY not set"
		}
		return sender, "sendgrid", ""
	case "", "stub":
		return notify.NewStubEmailSender(logger), "stub", ""
	default:
		return notify.NewStubEmailSender(logger), "stub", "unknown EMAIL_PROVIDER " + cfg.EmailProvider
	}
}

// BuildEventPublisher returns a Kafka publisher when brokers are configured.
// The close func is always safe to call.
func BuildEventPublisher(cfg *appconfig.Config, logger *logging.Logger) (events.Publisher, func() error) {
	noop := func() error { return nil }
	if cfg == nil {
		return events.NopPublisher{}, noop
	}
	brokers := events.SplitBrokers(cfg.KafkaBrokers)
	if len(brokers) == 0 || strings.TrimSpace(cfg.KafkaTopic) == "" {
		return events.NopPublisher{}, noop
	}
	publisher := events.NewKafkaPublisher(brokers, cfg.KafkaTopic, logger)
	return publisher, publisher.Close
}

// BuildReportArchive wires the S3 archive for weekly reports. It is disabled
// without a bucket or AWS config.
func BuildReportArchive(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *digest.Archive {
	if cfg == nil || awsCfg == nil || strings.TrimSpace(cfg.ReportArchiveBucket) == "" {
		return digest.NewArchive(nil, "", logger)
	}
	client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
		// LocalStack serves buckets by path.
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	return digest.NewArchive(client, cfg.ReportArchiveBucket, logger)
}
