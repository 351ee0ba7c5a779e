package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/localkart/localkart-backend/api/controllers"
	"github.com/localkart/localkart-backend/api/middleware"
	"github.com/localkart/localkart-backend/internal/auth"
	"github.com/localkart/localkart-backend/internal/fulfillment"
	"github.com/localkart/localkart-backend/internal/handoff"
	"github.com/localkart/localkart-backend/internal/notifications"
	"github.com/localkart/localkart-backend/internal/orders"
	"github.com/localkart/localkart-backend/pkg/auth/session"
	"github.com/localkart/localkart-backend/pkg/config"
	"github.com/localkart/localkart-backend/pkg/enums"
	"github.com/localkart/localkart-backend/pkg/logger"
	"github.com/localkart/localkart-backend/pkg/redis"
)

// Deps bundles everything the HTTP layer needs wired in.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             controllers.Pinger
	Redis          *redis.Client
	PubSub         controllers.Pinger
	SessionManager *session.Manager
	AuthService    auth.Service
	OrdersService  orders.Service
	Fulfillment    fulfillment.Service
	Handoff        handoff.Service
	Notifications  notifications.Service
	Hub            *notifications.Hub
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis, deps.PubSub))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(string(enums.UserRoleCustomer), logg)).
				Post("/", controllers.PlaceOrder(deps.OrdersService, logg))
			r.Get("/", controllers.ListOrders(deps.OrdersService, logg))
			r.Get("/{orderID}", controllers.GetOrder(deps.OrdersService, logg))
			r.Get("/{orderID}/tracking", controllers.GetOrderTracking(deps.OrdersService, logg))
			r.Get("/{orderID}/location", controllers.GetOrderLocation(deps.OrdersService, deps.Handoff, logg))
			r.With(middleware.RequireAnyRole(logg, string(enums.UserRoleCustomer), string(enums.UserRoleAdmin))).
				Post("/{orderID}/cancel", controllers.CancelOrder(deps.OrdersService, deps.Fulfillment, logg))
		})

		r.Route("/seller/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleSeller), logg))
			r.Get("/", controllers.ListOrders(deps.OrdersService, logg))
			r.Post("/{orderID}/confirm", controllers.SellerAdvanceOrder(deps.Fulfillment, enums.OrderStatusConfirmed, logg))
			r.Post("/{orderID}/preparing", controllers.SellerAdvanceOrder(deps.Fulfillment, enums.OrderStatusPreparing, logg))
			r.Post("/{orderID}/ready", controllers.SellerAdvanceOrder(deps.Fulfillment, enums.OrderStatusReadyForPickup, logg))
			r.Post("/{orderID}/verify-otp", controllers.SellerVerifyOTP(deps.Handoff, logg))
		})

		r.Route("/agent/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleAgent), logg))
			r.Get("/", controllers.ListOrders(deps.OrdersService, logg))
			r.Get("/queue", controllers.AgentOrderQueue(deps.Handoff, logg))
			r.Post("/{orderID}/accept", controllers.AgentAcceptOrder(deps.Handoff, logg))
			r.Post("/{orderID}/generate-otp", controllers.AgentGenerateOTP(deps.Handoff, logg))
			r.Post("/{orderID}/pickup", controllers.AgentPickupOrder(deps.Handoff, logg))
			r.Post("/{orderID}/start-delivery", controllers.AgentStartDelivery(deps.Handoff, logg))
			r.Post("/{orderID}/location", controllers.AgentUpdateLocation(deps.Handoff, logg))
			r.Post("/{orderID}/complete", controllers.AgentCompleteOrder(deps.Handoff, logg))
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
			r.Get("/", controllers.ListOrders(deps.OrdersService, logg))
			r.Patch("/{orderID}", controllers.AdminUpdateOrder(deps.OrdersService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/stream", controllers.StreamNotifications(deps.Hub, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	return r
}
