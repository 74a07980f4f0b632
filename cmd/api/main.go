package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/little-explorers/storefront/api/controllers"
	"github.com/little-explorers/storefront/api/routes"
	"github.com/little-explorers/storefront/internal/bag"
	"github.com/little-explorers/storefront/internal/checkout"
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

const webhookIdempotencyScope = "stripe-webhook"

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
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storefrontMetrics := metrics.NewStorefront(registry)

	// Without processor credentials the shop still runs; checkout reports
	// payments as unavailable and the webhook endpoint refuses events.
	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "stripe client disabled")
		stripeClient = nil
	}
	bridge := payments.NewBridge(payments.BridgeParams{
		Intents: stripe.NewPaymentIntents(stripeClient),
		Timeout: cfg.Stripe.Timeout,
		Metrics: storefrontMetrics,
		Logger:  logg,
	})

	gormDB := dbClient.DB()
	pricing, err := storesettings.NewService(gormDB, cfg.Checkout)
	if err != nil {
		logg.Error(ctx, "failed to create store settings service", err)
		os.Exit(1)
	}
	productRepo := products.NewRepository(gormDB)
	profileRepo := profiles.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	bagStore, err := bag.NewStore(redisClient, cfg.Session.TTL)
	if err != nil {
		logg.Error(ctx, "failed to create bag store", err)
		os.Exit(1)
	}
	bagService, err := bag.NewService(bag.ServiceParams{
		Store:    bagStore,
		Products: productRepo,
		Pricing:  pricing,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create bag service", err)
		os.Exit(1)
	}

	materializer, err := checkout.NewMaterializer(checkout.MaterializerParams{
		Tx:       dbClient,
		Orders:   ordersRepo,
		Products: productRepo,
		Outbox:   outboxService,
		Metrics:  storefrontMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create order materializer", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Bags:           bagStore,
		Products:       productRepo,
		Pricing:        pricing,
		Bridge:         bridge,
		PublishableKey: stripeClient.PublishableKey(),
		Materializer:   materializer,
		Orders:         ordersRepo,
		Profiles:       profileRepo,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Tx:       dbClient,
		Products: productRepo,
		Pricing:  pricing,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:            ordersRepo,
		TransactionRunner: dbClient,
		Materializer:      materializer,
		Profiles:          profileRepo,
		Pricing:           pricing,
		Intents:           bridge,
		Outbox:            outboxService,
		Metrics:           storefrontMetrics,
		Logger:            logg,
		LookupAttempts:    cfg.Checkout.WebhookLookupAttempts,
		LookupDelay:       cfg.Checkout.WebhookLookupDelay,
	})
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook service", err)
		os.Exit(1)
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Checkout.WebhookIdempotencyTTL, webhookIdempotencyScope)
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
		"stripe":   stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			registry,
			redisClient,
			bagService,
			checkoutService,
			ordersService,
			profileRepo,
			stripeClient,
			webhookService,
			webhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
