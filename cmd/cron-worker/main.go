package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/vendorops-backend/internal/cron"
	"github.com/angelmondragon/vendorops-backend/internal/notifications"
	"github.com/angelmondragon/vendorops-backend/internal/orders"
	"github.com/angelmondragon/vendorops-backend/internal/otp"
	"github.com/angelmondragon/vendorops-backend/internal/vendors"
	"github.com/angelmondragon/vendorops-backend/pkg/config"
	"github.com/angelmondragon/vendorops-backend/pkg/db"
	"github.com/angelmondragon/vendorops-backend/pkg/instance"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
	"github.com/angelmondragon/vendorops-backend/pkg/metrics"
	"github.com/angelmondragon/vendorops-backend/pkg/migrate"
	"github.com/angelmondragon/vendorops-backend/pkg/outbox"
	"github.com/angelmondragon/vendorops-backend/pkg/redis"
	"github.com/angelmondragon/vendorops-backend/pkg/security"
)

const lockKeyFormat = "vo:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry, err := buildJobs(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        registry.Names(),
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Registry, error) {
	outboxRepo := outbox.NewRepository(dbClient.DB())

	presence, err := vendors.NewPresenceService(redisClient, cfg.Lifecycle, logg)
	if err != nil {
		return nil, fmt.Errorf("presence service: %w", err)
	}

	ordersService, err := orders.NewService(orders.Deps{
		Repo:      orders.NewRepository(dbClient.DB()),
		Tx:        dbClient,
		Outbox:    outbox.NewService(outboxRepo, logg),
		OTP:       otp.NewEngine(security.NewCodeHasher(cfg.Hashing), cfg.Lifecycle),
		Logger:    logg,
		Lifecycle: cfg.Lifecycle,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	outboxJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}

	notificationJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notifications.NewRepository(dbClient.DB()),
		Retention:  cfg.Cron.NotificationRetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}

	otpJob, err := cron.NewOTPHygieneJob(cron.OTPHygieneJobParams{
		Logger:    logg,
		Orders:    ordersService,
		BatchSize: cfg.Cron.OTPHygieneBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("otp hygiene job: %w", err)
	}

	presenceJob, err := cron.NewPresenceSweepJob(cron.PresenceSweepJobParams{
		Logger:   logg,
		Presence: presence,
	})
	if err != nil {
		return nil, fmt.Errorf("presence sweep job: %w", err)
	}

	return cron.NewRegistry(outboxJob, notificationJob, otpJob, presenceJob), nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
