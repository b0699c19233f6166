package mainconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/makhandasmiles/clinic-api/internal/app/bootstrap"
	appconfig "github.com/makhandasmiles/clinic-api/internal/config"
	"github.com/makhandasmiles/clinic-api/internal/observability/metrics"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// LoadAWSConfig centralizes AWS SDK initialization so every binary shares the
// same LocalStack/production wiring.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}

	if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(endpoint)
	}

	return awsCfg, nil
}

// Runtime is the connected service graph plus the handles that need closing.
type Runtime struct {
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Services *bootstrap.Services

	closers []func()
}

// Close releases connections in reverse order of acquisition.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// BuildRuntime connects Postgres, Redis, AWS and Kafka and assembles the
// services. AWS is only loaded when SES or the report archive needs it.
func BuildRuntime(ctx context.Context, cfg *appconfig.Config, registry prometheus.Registerer, logger *logging.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logging.Default()
	}
	rt := &Runtime{}

	pool, err := bootstrap.BuildPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt.Pool = pool
	rt.closers = append(rt.closers, pool.Close)

	rt.Redis = bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if rt.Redis != nil {
		client := rt.Redis
		rt.closers = append(rt.closers, func() { _ = client.Close() })
	}

	var awsCfg *aws.Config
	if cfg.EmailProvider == "ses" || cfg.ReportArchiveBucket != "" {
		loaded, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("mainconfig: load aws config: %w", err)
		}
		awsCfg = &loaded
	}

	email, provider, reason := bootstrap.BuildEmailSender(cfg, awsCfg, metrics.NewEmailMetrics(registry), logger)
	if reason != "" {
		logger.Warn("email provider fallback", "configured", cfg.EmailProvider, "using", provider, "reason", reason)
	} else {
		logger.Info("email provider selected", "provider", provider)
	}

	publisher, closePublisher := bootstrap.BuildEventPublisher(cfg, logger)
	rt.closers = append(rt.closers, func() {
		if err := closePublisher(); err != nil {
			logger.Warn("close event publisher", "error", err)
		}
	})

	rt.Services = bootstrap.BuildServices(cfg, bootstrap.Infra{
		DB:       pool,
		Locker:   bootstrap.BuildLocker(rt.Redis, logger),
		Email:    email,
		Events:   publisher,
		Archive:  bootstrap.BuildReportArchive(cfg, awsCfg, logger),
		Registry: registry,
	}, logger)
	return rt, nil
}
