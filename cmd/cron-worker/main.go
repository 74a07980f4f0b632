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

	"github.com/little-explorers/storefront/internal/checkout"
	"github.com/little-explorers/storefront/internal/cron"
	"github.com/little-explorers/storefront/internal/orders"
	"github.com/little-explorers/storefront/internal/payments"
	"github.com/little-explorers/storefront/internal/products"
	"github.com/little-explorers/storefront/internal/profiles"
	"github.com/little-explorers/storefront/internal/storesettings"
	stripewebhook "github.com/little-explorers/storefront/internal/webhooks/stripe"
	"github.com/little-explorers/storefront/pkg/config"
	"github.com/little-explorers/storefront/pkg/db"
	"github.com/little-explorers/storefront/pkg/instance"
	"github.com/little-explorers/storefront/pkg/logger"
	"github.com/little-explorers/storefront/pkg/metrics"
	"github.com/little-explorers/storefront/pkg/migrate"
	"github.com/little-explorers/storefront/pkg/outbox"
	"github.com/little-explorers/storefront/pkg/redis"
	"github.com/little-explorers/storefront/pkg/stripe"
)

const lockKeyFormat = "sf:maintenance:lock:%s"

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

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.LogFormat == "console",
	})
	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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
	storefrontMetrics := metrics.NewStorefront(registry)

	gormDB := dbClient.DB()
	outboxRepo := outbox.NewRepository(gormDB)
	jobs := []cron.Job{}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repository:    outboxRepo,
		RetentionDays: cfg.Maintenance.OutboxRetentionDays,
		MaxAttempts:   cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(ctx, "failed to create outbox retention job", err)
		os.Exit(1)
	}
	jobs = append(jobs, retention)

	reconcile, err := paymentReconcileJob(ctx, cfg, logg, dbClient, outboxRepo, storefrontMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create payment reconcile job", err)
		os.Exit(1)
	}
	if reconcile != nil {
		jobs = append(jobs, reconcile)
	}

	lock, err := cron.NewRedisLock(redisClient, fmt.Sprintf(lockKeyFormat, cfg.App.Env), 0)
	if err != nil {
		logg.Error(ctx, "failed to create maintenance lock", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     jobs,
		Lock:     lock,
		Metrics:  metrics.NewMaintenanceJobs(registry),
		Interval: cfg.Maintenance.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"instance":    instance.ID(),
		"serviceKind": "cron-worker",
		"jobs":        len(jobs),
	})

	stopMetrics := metrics.ServeWorker(ctx, cfg.Metrics, registry, logg)
	defer stopMetrics()

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// paymentReconcileJob returns nil when no processor credentials are set.
func paymentReconcileJob(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, outboxRepo *outbox.Repository, m *metrics.Storefront) (cron.Job, error) {
	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "payment reconcile job disabled")
		return nil, nil
	}
	bridge := payments.NewBridge(payments.BridgeParams{
		Intents: stripe.NewPaymentIntents(stripeClient),
		Timeout: cfg.Stripe.Timeout,
		Metrics: m,
		Logger:  logg,
	})

	gormDB := dbClient.DB()
	pricing, err := storesettings.NewService(gormDB, cfg.Checkout)
	if err != nil {
		return nil, err
	}
	ordersRepo := orders.NewRepository(gormDB)
	productRepo := products.NewRepository(gormDB)
	profileRepo := profiles.NewRepository(gormDB)
	outboxService := outbox.NewService(outboxRepo, logg)

	materializer, err := checkout.NewMaterializer(checkout.MaterializerParams{
		Tx:       dbClient,
		Orders:   ordersRepo,
		Products: productRepo,
		Outbox:   outboxService,
		Metrics:  m,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}
	reconciler, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:            ordersRepo,
		TransactionRunner: dbClient,
		Materializer:      materializer,
		Profiles:          profileRepo,
		Pricing:           pricing,
		Intents:           bridge,
		Outbox:            outboxService,
		Metrics:           m,
		Logger:            logg,
		LookupAttempts:    1,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewPaymentReconcileJob(cron.PaymentReconcileJobParams{
		Logger:     logg,
		Orders:     ordersRepo,
		Intents:    bridge,
		Reconciler: reconciler,
		Age:        cfg.Maintenance.PendingPaymentAge,
		Limit:      cfg.Maintenance.PendingPaymentBatch,
	})
}
