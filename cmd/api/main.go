package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/vendorops-backend/api/routes"
	"github.com/angelmondragon/vendorops-backend/internal/auth"
	"github.com/angelmondragon/vendorops-backend/internal/earnings"
	"github.com/angelmondragon/vendorops-backend/internal/mockorders"
	"github.com/angelmondragon/vendorops-backend/internal/notifications"
	"github.com/angelmondragon/vendorops-backend/internal/orders"
	"github.com/angelmondragon/vendorops-backend/internal/otp"
	"github.com/angelmondragon/vendorops-backend/internal/vendors"
	"github.com/angelmondragon/vendorops-backend/pkg/authz"
	"github.com/angelmondragon/vendorops-backend/pkg/config"
	"github.com/angelmondragon/vendorops-backend/pkg/db"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
	"github.com/angelmondragon/vendorops-backend/pkg/metrics"
	"github.com/angelmondragon/vendorops-backend/pkg/migrate"
	"github.com/angelmondragon/vendorops-backend/pkg/outbox"
	"github.com/angelmondragon/vendorops-backend/pkg/redis"
	"github.com/angelmondragon/vendorops-backend/pkg/security"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	lifecycleMetrics := metrics.NewLifecycleMetrics(registry)

	enforcer, err := authz.NewDefault()
	if err != nil {
		logg.Error(ctx, "failed to load authorization policies", err)
		os.Exit(1)
	}

	hasher := security.NewCodeHasher(cfg.Hashing)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	vendorRepo := vendors.NewRepository(dbClient.DB())

	notifier, err := notifications.NewOutboxNotifier(dbClient, outboxService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create notifier", err)
		os.Exit(1)
	}

	presenceService, err := vendors.NewPresenceService(redisClient, cfg.Lifecycle, logg)
	if err != nil {
		logg.Error(ctx, "failed to create presence service", err)
		os.Exit(1)
	}

	exposeCodes := !cfg.App.IsProd()

	authService, err := auth.NewService(auth.ServiceParams{
		VendorRepo: vendorRepo,
		Codes:      redisClient,
		Hasher:     hasher,
		Notifier:   notifier,
		JWTConfig:  cfg.JWT,
		Lifecycle:  cfg.Lifecycle,
		ExposeCode: exposeCodes,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.Deps{
		Repo:      ordersRepo,
		Tx:        dbClient,
		Outbox:    outboxService,
		OTP:       otp.NewEngine(hasher, cfg.Lifecycle),
		Notifier:  notifier,
		Locator:   presenceService,
		Vendors:   vendorRepo,
		Metrics:   lifecycleMetrics,
		Logger:    logg,
		Lifecycle: cfg.Lifecycle,
		ExposeOTP: exposeCodes,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	mockService, err := mockorders.NewService(mockorders.Deps{
		Repo:    mockorders.NewRepository(dbClient.DB()),
		Creator: ordersService,
		Orders:  ordersRepo,
		Counter: redisClient,
		Metrics: lifecycleMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create mock order service", err)
		os.Exit(1)
	}

	earningsService, err := earnings.NewService(earnings.NewRepository(dbClient.DB()), cfg.Lifecycle.DefaultCurrency)
	if err != nil {
		logg.Error(ctx, "failed to create earnings service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:            dbClient,
			Redis:         redisClient,
			Authorizer:    enforcer,
			Gatherer:      registry,
			Auth:          authService,
			Orders:        ordersService,
			MockOrders:    mockService,
			Earnings:      earningsService,
			Presence:      presenceService,
			Notifications: notificationsService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(serverCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(serverCtx, "api server stopped")
}
