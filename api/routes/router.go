package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/vendorops-backend/api/controllers"
	authcontrollers "github.com/angelmondragon/vendorops-backend/api/controllers/auth"
	ordercontrollers "github.com/angelmondragon/vendorops-backend/api/controllers/orders"
	"github.com/angelmondragon/vendorops-backend/api/middleware"
	"github.com/angelmondragon/vendorops-backend/internal/auth"
	"github.com/angelmondragon/vendorops-backend/internal/earnings"
	"github.com/angelmondragon/vendorops-backend/internal/mockorders"
	"github.com/angelmondragon/vendorops-backend/internal/notifications"
	"github.com/angelmondragon/vendorops-backend/internal/orders"
	"github.com/angelmondragon/vendorops-backend/pkg/authz"
	"github.com/angelmondragon/vendorops-backend/pkg/config"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/vendorops-backend/pkg/redis"
)

// RedisStore is the redis surface shared by the idempotency and rate limit
// middleware and the readiness probe.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Dependencies are the services mounted by NewRouter. Nil services answer
// with INTERNAL errors instead of panicking.
type Dependencies struct {
	DB            controllers.Pinger
	Redis         RedisStore
	Authorizer    middleware.Authorizer
	Gatherer      prometheus.Gatherer
	Auth          auth.Service
	Orders        orders.Service
	MockOrders    mockorders.Service
	Earnings      earnings.Service
	Presence      controllers.PresenceService
	Notifications notifications.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	pingers := map[string]controllers.Pinger{}
	if deps.DB != nil {
		pingers["db"] = deps.DB
	}
	if deps.Redis != nil {
		pingers["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	loginPolicy := middleware.NewRateLimitPolicy(
		"vendor-login",
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
		cfg.RateLimit.LoginMobileLimit,
	)
	r.Route("/auth/vendor", func(r chi.Router) {
		r.Use(middleware.RateLimit(loginPolicy, deps.Redis, logg))
		r.Post("/register", authcontrollers.VendorRegister(deps.Auth, logg))
		r.Post("/verify", authcontrollers.VendorVerify(deps.Auth, logg))
	})

	if !cfg.App.IsProd() || cfg.FeatureFlags.DevRoutes {
		r.Route("/api/dev/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.MockCreate(deps.MockOrders, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, logg))
				r.Use(middleware.Authorize(deps.Authorizer, authz.ResourceDevOrders, authz.ActionRead, logg))
				r.Get("/stats", ordercontrollers.MockStats(deps.MockOrders, logg))
				r.Get("/calls", ordercontrollers.MockCalls(deps.MockOrders, logg))
			})
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		allow := func(resource, action string) func(http.Handler) http.Handler {
			return middleware.Authorize(deps.Authorizer, resource, action, logg)
		}

		r.With(allow(authz.ResourceOrders, authz.ActionCreate)).
			Post("/orders", ordercontrollers.Create(deps.Orders, logg))

		r.Route("/vendor", func(r chi.Router) {
			r.Route("/orders", func(r chi.Router) {
				r.With(allow(authz.ResourceOrders, authz.ActionRead)).Get("/", ordercontrollers.List(deps.Orders, logg))

				r.Route("/{orderId}", func(r chi.Router) {
					r.With(allow(authz.ResourceOrders, authz.ActionRead)).Get("/", ordercontrollers.Detail(deps.Orders, logg))

					r.Group(func(r chi.Router) {
						r.Use(allow(authz.ResourceOrders, authz.ActionWrite))
						r.Post("/accept", ordercontrollers.Accept(deps.Orders, logg))
						r.Post("/reject", ordercontrollers.Reject(deps.Orders, logg))
						r.Post("/start", ordercontrollers.Start(deps.Orders, logg))
						r.Post("/complete", ordercontrollers.Complete(deps.Orders, logg))
						r.Post("/cancel", ordercontrollers.Cancel(deps.Orders, logg))
						r.Patch("/fare", ordercontrollers.UpdateFare(deps.Orders, logg))
					})

					r.Group(func(r chi.Router) {
						r.Use(allow(authz.ResourceOrderPayments, authz.ActionWrite))
						r.Post("/payment-requests", ordercontrollers.RequestPayment(deps.Orders, logg))
						r.Post("/payment-requests/{paymentRequestId}/confirm", ordercontrollers.ConfirmPayment(deps.Orders, logg))
					})

					r.Group(func(r chi.Router) {
						r.Use(allow(authz.ResourceOrderOTP, authz.ActionWrite))
						r.Post("/otp", ordercontrollers.RequestOTP(deps.Orders, logg))
						r.Post("/otp/verify", ordercontrollers.VerifyOTP(deps.Orders, logg))
					})
				})
			})

			r.Route("/earnings", func(r chi.Router) {
				r.Use(allow(authz.ResourceEarnings, authz.ActionRead))
				r.Get("/", controllers.EarningsSummary(deps.Earnings, logg))
				r.Get("/history", controllers.EarningsHistory(deps.Earnings, logg))
			})

			r.Route("/presence", func(r chi.Router) {
				r.With(allow(authz.ResourcePresence, authz.ActionRead)).Get("/", controllers.PresenceStatus(deps.Presence, logg))
				r.With(allow(authz.ResourcePresence, authz.ActionWrite)).Post("/", controllers.PresenceHeartbeat(deps.Presence, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.With(allow(authz.ResourceNotifications, authz.ActionRead)).Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.With(allow(authz.ResourceNotifications, authz.ActionWrite)).Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			})
		})
	})

	return r
}
