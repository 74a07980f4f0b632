package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/little-explorers/storefront/api/controllers"
	webhookcontrollers "github.com/little-explorers/storefront/api/controllers/webhooks"
	"github.com/little-explorers/storefront/api/middleware"
	"github.com/little-explorers/storefront/pkg/config"
	"github.com/little-explorers/storefront/pkg/enums"
	"github.com/little-explorers/storefront/pkg/logger"
	"github.com/little-explorers/storefront/pkg/redis"
)

type signingSecretSource interface {
	SigningSecret() string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	gatherer prometheus.Gatherer,
	idempotencyStore redis.IdempotencyStore,
	bagService controllers.BagService,
	checkoutService controllers.CheckoutService,
	orderService controllers.OrderService,
	profiles controllers.ProfileFinder,
	stripeClient signingSecretSource,
	stripeWebhookService webhookcontrollers.StripeWebhookService,
	stripeWebhookGuard webhookcontrollers.StripeWebhookGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	if cfg.Metrics.Enabled && gatherer != nil {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// The processor calls back without a browser session.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.CORSOrigins))
		r.Use(middleware.Session(cfg.Session, logg))
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/bag", func(r chi.Router) {
			r.Get("/", controllers.BagContents(bagService, logg))
			r.Post("/items/{productId}", controllers.BagAdd(bagService, logg))
			r.Put("/items/{productId}", controllers.BagAdjust(bagService, logg))
			r.Delete("/items/{productId}", controllers.BagRemove(bagService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutPrepare(checkoutService, logg))
			r.Post("/", controllers.CheckoutSubmit(checkoutService, logg))
			r.Post("/cache", controllers.CheckoutCache(checkoutService, logg))
			r.Get("/success/{orderNumber}", controllers.CheckoutSuccess(checkoutService, logg))
		})

		r.Get("/orders/{orderNumber}", controllers.OrderDetail(orderService, profiles, logg))

		r.With(middleware.RequireAuth(logg)).Get("/profile/orders", controllers.ProfileOrders(orderService, profiles, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.CORSOrigins))
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAuth(logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/orders/{orderNumber}/line-items", func(r chi.Router) {
			r.Post("/", controllers.AdminAddLineItem(orderService, logg))
			r.Patch("/{lineItemId}", controllers.AdminUpdateLineItem(orderService, logg))
			r.Delete("/{lineItemId}", controllers.AdminDeleteLineItem(orderService, logg))
		})
	})

	return r
}
